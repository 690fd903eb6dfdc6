// Package pipeline provides E2E run orchestration.
// It coordinates: aggregation → features → scoring → forecasting →
// clustering → anomaly detection, and assembles the run result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"repurchase-lab/internal/aggregation"
	"repurchase-lab/internal/anomaly"
	"repurchase-lab/internal/clustering"
	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/features"
	"repurchase-lab/internal/forecast"
	"repurchase-lab/internal/idhash"
	"repurchase-lab/internal/memo"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/patternchange"
	"repurchase-lab/internal/scoring"
	"repurchase-lab/internal/storage"
)

// Runner coordinates one full analytics pass over a transaction snapshot.
// Storage and memo cache are optional: a nil store skips persistence, a
// nil cache skips memoization. The computation itself is pure.
type Runner struct {
	cfg domain.Config

	memoCache memo.Cache

	// Optional stores, persisted to when set
	pairResultStore storage.PairResultStore
	clusterStore    storage.ClusterAssignmentStore
	featureStore    storage.FeatureVectorStore
	anomalyStore    storage.AnomalyFlagStore

	clock   func() time.Time
	verbose bool
}

// Options for creating a Runner.
type Options struct {
	Config domain.Config

	MemoCache memo.Cache

	PairResultStore storage.PairResultStore
	ClusterStore    storage.ClusterAssignmentStore
	FeatureStore    storage.FeatureVectorStore
	AnomalyStore    storage.AnomalyFlagStore

	Verbose bool
}

// New creates a new Runner.
func New(opts Options) *Runner {
	return &Runner{
		cfg:             opts.Config,
		memoCache:       opts.MemoCache,
		pairResultStore: opts.PairResultStore,
		clusterStore:    opts.ClusterStore,
		featureStore:    opts.FeatureStore,
		anomalyStore:    opts.AnomalyStore,
		clock:           func() time.Time { return time.Now().UTC() },
		verbose:         opts.Verbose,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run executes the full pipeline over one transaction snapshot.
// Phases:
//  1. Validate input and compute the snapshot ID
//  2. Aggregate pair series
//  3. Extract features, score confidence, classify trends
//  4. Train the ensemble and forecast every pair
//  5. Cluster customers into archetypes
//  6. Score purchase events for anomalies
func (r *Runner) Run(ctx context.Context, txs []domain.Transaction) (*domain.RunResult, error) {
	started := r.clock()

	// Phase 1: Validate and identify the snapshot
	r.log("Phase 1: Validating %d transactions...", len(txs))
	if err := aggregation.Validate(txs); err != nil {
		observability.RecordRun("invalid_input", r.clock().Sub(started).Seconds())
		return nil, fmt.Errorf("phase 1 (validate) failed: %w", err)
	}
	snapshotID := idhash.SnapshotID(txs)
	r.log("  Snapshot %s", snapshotID)

	if cached, ok := r.memoLookup(ctx, snapshotID); ok {
		r.log("  Memo hit, reusing cached result")
		return cached, nil
	}

	// Phase 2: Aggregation
	r.log("Phase 2: Building pair series...")
	series, err := aggregation.BuildSeries(txs)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (aggregate) failed: %w", err)
	}
	ref := aggregation.ReferenceTime(r.cfg, txs)
	r.log("  Built %d pair series, reference time %s", len(series), ref.Format(time.RFC3339))

	// Phase 3: Features, confidence, trends
	r.log("Phase 3: Extracting features and scoring...")
	stage := r.clock()
	vectors := make(map[domain.PairKey]*domain.FeatureVector, len(series))
	for _, s := range series {
		vectors[s.Key()] = features.Extract(s, ref)
	}
	observability.RecordStage("features", r.clock().Sub(stage).Seconds())

	// Phase 4: Forecasting
	r.log("Phase 4: Training ensemble and forecasting...")
	stage = r.clock()
	rows := forecast.BuildTrainingSet(series, r.cfg)
	model, report := forecast.Train(rows, r.cfg)
	if report.Degraded {
		r.log("  Model degraded: %s", report.DegradedReason)
	} else {
		r.log("  Trained on %d rows, ensemble R2 %.3f", report.TrainRows, report.Ensemble.R2)
		observability.DefaultMetrics.ModelR2.Set(report.Ensemble.R2)
	}
	observability.RecordStage("forecast", r.clock().Sub(stage).Seconds())

	pairs := make([]*domain.PairResult, 0, len(series))
	for _, s := range series {
		f := vectors[s.Key()]
		pr := &domain.PairResult{
			CustomerID: s.CustomerID,
			ProductID:  s.ProductID,
			Series: domain.SeriesSummary{
				OrderCount:     s.OrderCount(),
				FirstOrderDate: s.FirstOrderDate,
				LastOrderDate:  s.LastOrderDate,
				GapMeanDays:    f.GapMeanDays,
				GapCV:          f.GapCV,
			},
			Confidence: scoring.Score(s, f, r.cfg),
			Forecast:   forecast.ForecastPair(s, model, r.cfg),
			Trend:      patternchange.Classify(s, r.cfg),
		}
		observability.RecordForecast(string(pr.Forecast.Method))
		pairs = append(pairs, pr)
	}

	// Phase 5: Clustering
	r.log("Phase 5: Clustering customers...")
	stage = r.clock()
	customers := customerFeatures(series, ref)
	assignments, summaries, clusteringSkipped := clustering.Cluster(customers, r.cfg)
	if clusteringSkipped {
		r.log("  Skipped: %d customers < %d clusters", len(customers), r.cfg.ClusterCount)
	} else {
		r.log("  Assigned %d customers to %d clusters", len(assignments), len(summaries))
	}
	observability.RecordStage("clustering", r.clock().Sub(stage).Seconds())

	// Phase 6: Anomaly detection
	r.log("Phase 6: Scoring purchase events...")
	stage = r.clock()
	flags, anomalySkipped := anomaly.Detect(series, r.cfg)
	r.log("  Flagged %d events", len(flags))
	for _, f := range flags {
		observability.RecordAnomaly(string(f.Severity))
	}
	observability.RecordStage("anomaly", r.clock().Sub(stage).Seconds())

	result := &domain.RunResult{
		SnapshotID:       snapshotID,
		GeneratedAt:      r.clock(),
		Pairs:            pairs,
		Clusters:         assignments,
		Summaries:        summaries,
		Anomalies:        flags,
		Model:            report,
		Flags:            degradationFlags(report, clusteringSkipped, anomalySkipped),
		TransactionCount: len(txs),
		PairCount:        len(series),
		CustomerCount:    len(customers),
	}
	for _, flag := range result.Flags {
		observability.RecordDegradation(flag)
	}

	if err := r.persist(ctx, result, vectors, series); err != nil {
		observability.RecordRun("persist_error", r.clock().Sub(started).Seconds())
		return nil, err
	}
	r.memoStore(ctx, result)

	observability.RecordDataset(len(txs), len(series), len(customers))
	observability.RecordRun("ok", r.clock().Sub(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(r.clock().Unix()))

	return result, nil
}

// customerFeatures groups series by customer and extracts one pooled
// feature row per customer, in deterministic customer order.
func customerFeatures(series []*domain.IntervalSeries, ref time.Time) []*domain.CustomerFeatures {
	byCustomer := make(map[string][]*domain.IntervalSeries)
	var order []string
	for _, s := range series {
		if _, seen := byCustomer[s.CustomerID]; !seen {
			order = append(order, s.CustomerID)
		}
		byCustomer[s.CustomerID] = append(byCustomer[s.CustomerID], s)
	}

	// Series arrive sorted by (customer, product), so order is sorted too.
	customers := make([]*domain.CustomerFeatures, 0, len(order))
	for _, id := range order {
		customers = append(customers, features.ExtractCustomer(id, byCustomer[id], ref))
	}
	return customers
}

// persist writes the run to the configured stores. Results are
// write-once per snapshot and reruns of an unchanged snapshot produce
// identical output, so an existing row set is not an error.
func (r *Runner) persist(ctx context.Context, result *domain.RunResult, vectors map[domain.PairKey]*domain.FeatureVector, series []*domain.IntervalSeries) error {
	if r.pairResultStore != nil {
		err := r.pairResultStore.InsertBulk(ctx, result.SnapshotID, result.Pairs)
		if errors.Is(err, storage.ErrDuplicateKey) {
			r.log("  Snapshot %s already persisted, skipping writes", result.SnapshotID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("persist pair results: %w", err)
		}
	}
	if r.clusterStore != nil {
		if err := r.clusterStore.InsertBulk(ctx, result.SnapshotID, result.Clusters); err != nil {
			return fmt.Errorf("persist cluster assignments: %w", err)
		}
	}
	if r.featureStore != nil {
		ordered := make([]*domain.FeatureVector, 0, len(series))
		for _, s := range series {
			ordered = append(ordered, vectors[s.Key()])
		}
		if err := r.featureStore.InsertBulk(ctx, result.SnapshotID, ordered); err != nil {
			return fmt.Errorf("persist feature vectors: %w", err)
		}
	}
	if r.anomalyStore != nil {
		if err := r.anomalyStore.InsertBulk(ctx, result.SnapshotID, result.Anomalies); err != nil {
			return fmt.Errorf("persist anomaly flags: %w", err)
		}
	}
	return nil
}

func (r *Runner) memoLookup(ctx context.Context, snapshotID string) (*domain.RunResult, bool) {
	if r.memoCache == nil {
		return nil, false
	}
	cached, ok, err := r.memoCache.Get(ctx, snapshotID)
	if err != nil {
		// A broken cache must not fail the run.
		r.log("  Memo lookup failed: %v", err)
		return nil, false
	}
	observability.RecordMemoLookup(ok)
	return cached, ok
}

func (r *Runner) memoStore(ctx context.Context, result *domain.RunResult) {
	if r.memoCache == nil {
		return
	}
	if err := r.memoCache.Set(ctx, result); err != nil {
		r.log("  Memo store failed: %v", err)
	}
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf(format, args...)
	}
}
