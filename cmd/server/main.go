// Package main provides the analytics service:
// - Pipeline (scheduled): recomputes the full run over the current snapshot
// - HTTP API: latest run results, status, Prometheus metrics
// - WebSocket feed: announces completed runs
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/memo"
	"repurchase-lab/internal/pipeline"
	"repurchase-lab/internal/server"
	"repurchase-lab/internal/storage"
	chstore "repurchase-lab/internal/storage/clickhouse"
	"repurchase-lab/internal/storage/memory"
	"repurchase-lab/internal/storage/migrations"
	pgstore "repurchase-lab/internal/storage/postgres"
)

// Service holds all components of the analytics server.
type Service struct {
	txStore     storage.TransactionStore
	runner      *pipeline.Runner
	api         *server.Server
	interval    time.Duration
	fixtureSeed int64
	useFixtures bool
	logger      *log.Logger

	mu          sync.Mutex
	lastRun     time.Time
	runCount    int
	runFailures int
	running     bool
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the memo cache (optional)")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	runInterval := flag.Duration("run-interval", 1*time.Hour, "Pipeline run interval")
	useFixtures := flag.Bool("use-fixtures", false, "Serve runs over synthetic fixture transactions")
	fixtureSeed := flag.Int64("fixture-seed", 7, "Seed for the fixture generator")
	verbose := flag.Bool("verbose", false, "Verbose pipeline output")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useFixtures && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-fixtures for a demo server)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	opts := pipeline.Options{Config: domain.DefaultConfig(), Verbose: *verbose}
	svc := &Service{
		api:         server.New(logger),
		interval:    *runInterval,
		fixtureSeed: *fixtureSeed,
		useFixtures: *useFixtures,
		logger:      logger,
	}

	if *useFixtures {
		svc.txStore = memory.NewTransactionStore()
		opts.PairResultStore = memory.NewPairResultStore()
		opts.ClusterStore = memory.NewClusterAssignmentStore()
		opts.FeatureStore = memory.NewFeatureVectorStore()
		opts.AnomalyStore = memory.NewAnomalyFlagStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Failed to apply postgres migrations: %v", err)
		}
		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to apply clickhouse migrations: %v", err)
		}
		defer chConn.Close()

		svc.txStore = pgstore.NewTransactionStore(pool)
		opts.PairResultStore = pgstore.NewPairResultStore(pool)
		opts.ClusterStore = pgstore.NewClusterAssignmentStore(pool)
		opts.FeatureStore = chstore.NewFeatureVectorStore(chConn)
		opts.AnomalyStore = chstore.NewAnomalyFlagStore(chConn)
	}

	if *redisAddr != "" {
		cache, err := memo.NewRedisCache(ctx, *redisAddr, os.Getenv("REDIS_PASSWORD"), 24*time.Hour)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer cache.Close()
		opts.MemoCache = cache
	}

	svc.runner = pipeline.New(opts)

	// Start HTTP server
	httpServer := &http.Server{Addr: *listenAddr, Handler: svc.api.Handler()}
	go func() {
		logger.Printf("Starting HTTP server on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	err := svc.runScheduler(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// runScheduler recomputes the pipeline on an interval. The first run
// happens immediately on start.
func (s *Service) runScheduler(ctx context.Context) error {
	s.logger.Printf("Starting pipeline scheduler (interval: %v)...", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one pipeline pass and publishes its result.
func (s *Service) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Pipeline already running, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.mu.Unlock()
	}()

	txs, err := s.loadTransactions(ctx)
	if err != nil {
		s.logger.Printf("Failed to load transactions: %v", err)
		s.countRun(false)
		return
	}
	if len(txs) == 0 {
		s.logger.Println("No transactions available, skipping run")
		return
	}

	start := time.Now()
	result, err := s.runner.Run(ctx, txs)
	if err != nil {
		s.logger.Printf("Pipeline error: %v", err)
		s.countRun(false)
		return
	}
	s.countRun(true)

	s.logger.Printf("Run %s completed in %v: %d pairs, %d customers, %d anomalies",
		result.SnapshotID, time.Since(start).Round(time.Millisecond),
		result.PairCount, result.CustomerCount, len(result.Anomalies))

	s.api.Publish(result)
}

func (s *Service) loadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	if s.useFixtures {
		return pipeline.FixtureTransactions(s.fixtureSeed), nil
	}
	txs, err := s.txStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transaction snapshot: %w", err)
	}
	return txs, nil
}

func (s *Service) countRun(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCount++
	if !ok {
		s.runFailures++
	}
}
