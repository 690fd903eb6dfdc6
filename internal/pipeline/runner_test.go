package pipeline

import (
	"context"
	"testing"
	"time"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/memo"
	memstore "repurchase-lab/internal/storage/memory"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestRunner_FullRun(t *testing.T) {
	txs := FixtureTransactions(7)
	runner := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())

	result, err := runner.Run(context.Background(), txs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.SnapshotID == "" {
		t.Error("expected a snapshot ID")
	}
	if result.TransactionCount != len(txs) {
		t.Errorf("TransactionCount = %d, want %d", result.TransactionCount, len(txs))
	}
	if result.PairCount != len(result.Pairs) {
		t.Errorf("PairCount = %d but %d pairs", result.PairCount, len(result.Pairs))
	}
	// 12 regulars + disrupted + new + twice
	if result.CustomerCount != 15 {
		t.Errorf("CustomerCount = %d, want 15", result.CustomerCount)
	}

	// Enough customers and training rows: nothing should degrade.
	if len(result.Flags) != 0 {
		t.Errorf("unexpected degradation flags: %v", result.Flags)
	}
	if result.Model.Degraded {
		t.Errorf("model unexpectedly degraded: %s", result.Model.DegradedReason)
	}
	if len(result.Clusters) != result.CustomerCount {
		t.Errorf("expected one assignment per customer, got %d", len(result.Clusters))
	}
	if len(result.Summaries) != domain.DefaultConfig().ClusterCount {
		t.Errorf("expected %d cluster summaries, got %d", domain.DefaultConfig().ClusterCount, len(result.Summaries))
	}

	for _, p := range result.Pairs {
		if p.Confidence.Value < 0 || p.Confidence.Value > 100 {
			t.Errorf("pair %s/%s: confidence %v out of range", p.CustomerID, p.ProductID, p.Confidence.Value)
		}
		if p.Forecast.NextGapDays < 0 {
			t.Errorf("pair %s/%s: negative forecast gap", p.CustomerID, p.ProductID)
		}
	}
}

func TestRunner_ThinPairGetsStatisticalFallback(t *testing.T) {
	txs := FixtureTransactions(7)
	runner := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())

	result, err := runner.Run(context.Background(), txs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var thin *domain.PairResult
	for _, p := range result.Pairs {
		if p.CustomerID == "CUST-NEW" {
			thin = p
		}
	}
	if thin == nil {
		t.Fatal("expected a pair for CUST-NEW")
	}

	if !thin.Confidence.ThinHistory {
		t.Error("single-order pair should carry the thin-history default")
	}
	if thin.Confidence.Value != domain.ThinHistoryScore {
		t.Errorf("thin confidence = %v, want %v", thin.Confidence.Value, domain.ThinHistoryScore)
	}
	if thin.Forecast.Method != domain.MethodStatistical {
		t.Errorf("thin pair forecast method = %s, want statistical", thin.Forecast.Method)
	}
	if thin.Trend != nil {
		t.Error("thin pair should have no trend classification")
	}
}

func TestRunner_DisruptedPairFlaggedAndStable(t *testing.T) {
	txs := FixtureTransactions(7)
	runner := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())

	result, err := runner.Run(context.Background(), txs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The 60-day gap event should be flagged with an unexpected_gap reason.
	var found bool
	for _, f := range result.Anomalies {
		if f.CustomerID != "CUST-DISRUPTED" {
			continue
		}
		for _, reason := range f.Reasons {
			if reason == domain.ReasonUnexpectedGap {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected an unexpected_gap flag for the disrupted customer")
	}

	// Recent window [30, 60, 15] averages back to the historical cadence,
	// so the pair classifies stable despite the disruption.
	for _, p := range result.Pairs {
		if p.CustomerID != "CUST-DISRUPTED" {
			continue
		}
		if p.Trend == nil {
			t.Fatal("disrupted pair should have a trend classification")
		}
		if p.Trend.Label != domain.TrendStable {
			t.Errorf("disrupted pair trend = %s, want stable", p.Trend.Label)
		}
	}
}

func TestRunner_Reproducible(t *testing.T) {
	cfg := domain.DefaultConfig()

	run := func() *domain.RunResult {
		runner := New(Options{Config: cfg}).WithClock(fixedClock())
		result, err := runner.Run(context.Background(), FixtureTransactions(7))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if a.SnapshotID != b.SnapshotID {
		t.Fatalf("snapshot IDs differ: %s vs %s", a.SnapshotID, b.SnapshotID)
	}
	if len(a.Pairs) != len(b.Pairs) {
		t.Fatalf("pair counts differ: %d vs %d", len(a.Pairs), len(b.Pairs))
	}
	for i := range a.Pairs {
		pa, pb := a.Pairs[i], b.Pairs[i]
		if pa.Confidence.Value != pb.Confidence.Value {
			t.Errorf("pair %s/%s: confidence differs between runs", pa.CustomerID, pa.ProductID)
		}
		if pa.Forecast.NextGapDays != pb.Forecast.NextGapDays {
			t.Errorf("pair %s/%s: forecast differs between runs", pa.CustomerID, pa.ProductID)
		}
	}
	for i := range a.Clusters {
		if a.Clusters[i].Cluster != b.Clusters[i].Cluster {
			t.Errorf("customer %s: cluster differs between runs", a.Clusters[i].CustomerID)
		}
	}
	if len(a.Anomalies) != len(b.Anomalies) {
		t.Errorf("anomaly counts differ: %d vs %d", len(a.Anomalies), len(b.Anomalies))
	}
}

func TestRunner_RefundsDoNotAffectPairOutput(t *testing.T) {
	base := FixtureTransactions(7)

	// Place the refund after every purchase in the snapshot, so it would
	// move the recency anchor if refunds leaked into it.
	var latest time.Time
	for _, b := range base {
		if b.Timestamp.After(latest) {
			latest = b.Timestamp
		}
	}
	extra := append(append([]domain.Transaction{}, base...), domain.Transaction{
		CustomerID: "CUST-002",
		ProductID:  "PROD-03",
		Timestamp:  latest.Add(90 * 24 * time.Hour),
		Quantity:   2,
		UnitPrice:  7,
		Total:      -14,
		IsRefund:   true,
	})

	runA := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())
	a, err := runA.Run(context.Background(), base)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	runB := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())
	b, err := runB.Run(context.Background(), extra)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The refund changes the snapshot identity but no analytical output.
	if a.SnapshotID == b.SnapshotID {
		t.Error("snapshot ID should reflect the extra refund row")
	}
	if len(a.Pairs) != len(b.Pairs) {
		t.Fatalf("pair counts differ: %d vs %d", len(a.Pairs), len(b.Pairs))
	}
	for i := range a.Pairs {
		if a.Pairs[i].Confidence.Value != b.Pairs[i].Confidence.Value ||
			a.Pairs[i].Forecast.NextGapDays != b.Pairs[i].Forecast.NextGapDays {
			t.Errorf("pair %s/%s: output changed by a refund row", a.Pairs[i].CustomerID, a.Pairs[i].ProductID)
		}
	}
}

func TestRunner_InvalidInputFailsWholeRun(t *testing.T) {
	txs := FixtureTransactions(7)
	txs = append(txs, domain.Transaction{
		CustomerID: "", ProductID: "PROD-01",
		Timestamp: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		Quantity:  1, UnitPrice: 5, Total: 5,
	})

	runner := New(Options{Config: domain.DefaultConfig()}).WithClock(fixedClock())
	if _, err := runner.Run(context.Background(), txs); err == nil {
		t.Fatal("expected a contract violation error")
	}
}

func TestRunner_MemoAndPersistence(t *testing.T) {
	ctx := context.Background()
	cache := memo.NewMemoryCache()
	pairStore := memstore.NewPairResultStore()
	clusterStore := memstore.NewClusterAssignmentStore()
	featureStore := memstore.NewFeatureVectorStore()
	anomalyStore := memstore.NewAnomalyFlagStore()

	runner := New(Options{
		Config:          domain.DefaultConfig(),
		MemoCache:       cache,
		PairResultStore: pairStore,
		ClusterStore:    clusterStore,
		FeatureStore:    featureStore,
		AnomalyStore:    anomalyStore,
	}).WithClock(fixedClock())

	txs := FixtureTransactions(7)
	first, err := runner.Run(ctx, txs)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	stored, err := pairStore.GetBySnapshot(ctx, first.SnapshotID)
	if err != nil {
		t.Fatalf("GetBySnapshot failed: %v", err)
	}
	if len(stored) != first.PairCount {
		t.Errorf("stored %d pair results, want %d", len(stored), first.PairCount)
	}
	vecs, err := featureStore.GetBySnapshot(ctx, first.SnapshotID)
	if err != nil {
		t.Fatalf("feature GetBySnapshot failed: %v", err)
	}
	if len(vecs) != first.PairCount {
		t.Errorf("stored %d feature vectors, want %d", len(vecs), first.PairCount)
	}
	assigns, err := clusterStore.GetBySnapshot(ctx, first.SnapshotID)
	if err != nil {
		t.Fatalf("cluster GetBySnapshot failed: %v", err)
	}
	if len(assigns) != first.CustomerCount {
		t.Errorf("stored %d assignments, want %d", len(assigns), first.CustomerCount)
	}

	// A second run of the same snapshot is a memo hit: the write-once
	// stores would reject a re-insert, so success proves reuse.
	second, err := runner.Run(ctx, txs)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.SnapshotID != first.SnapshotID {
		t.Errorf("memo hit returned a different snapshot: %s", second.SnapshotID)
	}
}
