// Package main provides the one-shot pipeline entry point.
// Executes: aggregation → features → scoring → forecasting → clustering →
// anomaly detection, then prints a run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/memo"
	"repurchase-lab/internal/pipeline"
	chstore "repurchase-lab/internal/storage/clickhouse"
	"repurchase-lab/internal/storage/memory"
	"repurchase-lab/internal/storage/migrations"
	pgstore "repurchase-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the memo cache (optional)")
	useFixtures := flag.Bool("use-fixtures", false, "Run over synthetic fixture transactions instead of the database")
	fixtureSeed := flag.Int64("fixture-seed", 7, "Seed for the fixture generator")
	persist := flag.Bool("persist", true, "Persist results to the configured stores")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	if !*useFixtures && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "--postgres-dsn and --clickhouse-dsn are required (use --use-fixtures for a demo run)")
		os.Exit(1)
	}

	var txs []domain.Transaction
	opts := pipeline.Options{Config: domain.DefaultConfig(), Verbose: *verbose}

	if *useFixtures {
		txs = pipeline.FixtureTransactions(*fixtureSeed)
		if *persist {
			opts.PairResultStore = memory.NewPairResultStore()
			opts.ClusterStore = memory.NewClusterAssignmentStore()
			opts.FeatureStore = memory.NewFeatureVectorStore()
			opts.AnomalyStore = memory.NewAnomalyFlagStore()
		}
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying postgres migrations: %v\n", err)
			os.Exit(1)
		}
		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error applying clickhouse migrations: %v\n", err)
			os.Exit(1)
		}
		defer chConn.Close()

		txs, err = pgstore.NewTransactionStore(pool).GetAll(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading transactions: %v\n", err)
			os.Exit(1)
		}

		if *persist {
			opts.PairResultStore = pgstore.NewPairResultStore(pool)
			opts.ClusterStore = pgstore.NewClusterAssignmentStore(pool)
			opts.FeatureStore = chstore.NewFeatureVectorStore(chConn)
			opts.AnomalyStore = chstore.NewAnomalyFlagStore(chConn)
		}
	}

	if *redisAddr != "" {
		cache, err := memo.NewRedisCache(ctx, *redisAddr, os.Getenv("REDIS_PASSWORD"), 24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to redis: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
		opts.MemoCache = cache
	}

	fmt.Println("=== Repurchase Pipeline ===")
	fmt.Printf("Transactions: %d\n", len(txs))

	start := time.Now()
	result, err := pipeline.New(opts).Run(ctx, txs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	printSummary(result, time.Since(start))
}

func printSummary(result *domain.RunResult, elapsed time.Duration) {
	fmt.Printf("\nRun %s completed in %v\n", result.SnapshotID, elapsed.Round(time.Millisecond))
	fmt.Printf("  Pairs:     %d\n", result.PairCount)
	fmt.Printf("  Customers: %d\n", result.CustomerCount)
	fmt.Printf("  Anomalies: %d\n", len(result.Anomalies))

	if result.Model.Degraded {
		fmt.Printf("  Model:     degraded (%s)\n", result.Model.DegradedReason)
	} else {
		fmt.Printf("  Model:     R2 %.3f, MAE %.2f days (holdout %d rows)\n",
			result.Model.Ensemble.R2, result.Model.Ensemble.MAE, result.Model.HoldoutRows)
	}

	if len(result.Summaries) > 0 {
		fmt.Println("  Clusters:")
		for _, c := range result.Summaries {
			fmt.Printf("    [%d] %-22s %d customers\n", c.Cluster, c.Archetype, c.Size)
		}
	}

	if len(result.Flags) > 0 {
		fmt.Printf("  Degradations: %v\n", result.Flags)
	}
}
