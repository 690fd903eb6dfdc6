package domain

import "time"

// SeriesSummary is the compact per-pair history description exposed to
// consumers instead of the full series.
type SeriesSummary struct {
	OrderCount     int
	FirstOrderDate time.Time
	LastOrderDate  time.Time
	GapMeanDays    float64
	GapCV          float64
}

// PairResult bundles everything the core produced for one pair.
type PairResult struct {
	CustomerID string
	ProductID  string

	Series     SeriesSummary
	Confidence ConfidenceScore
	Forecast   Forecast

	// Trend is nil when the pair's history is too short for the
	// pattern-change windows (skipped, not scored).
	Trend *PatternChange
}

// Dataset-level degradation flags carried on RunResult.
const (
	// FlagForecastDegraded: no ML model could be trained; every forecast
	// is the statistical fallback.
	FlagForecastDegraded = "forecast_degraded"

	// FlagClusteringSkipped: fewer customers than clusters.
	FlagClusteringSkipped = "clustering_skipped"

	// FlagAnomalySkipped: no pair had enough history to train the
	// isolation forest.
	FlagAnomalySkipped = "anomaly_skipped"
)

// RunResult is the complete output contract of one pipeline invocation.
type RunResult struct {
	// SnapshotID is the base58 content hash of the input transaction set.
	// Identical input snapshots always produce identical IDs and results.
	SnapshotID  string
	GeneratedAt time.Time

	Pairs     []*PairResult
	Clusters  []*ClusterAssignment
	Summaries []*ClusterSummary
	Anomalies []*AnomalyFlag

	Model ModelReport

	// Flags carries dataset-level degradations (see Flag* constants) so a
	// consumer can visually distinguish a degraded run.
	Flags []string

	TransactionCount int
	PairCount        int
	CustomerCount    int
}
