// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec
	MemoHits      prometheus.Counter
	MemoMisses    prometheus.Counter

	// Dataset metrics
	TransactionsProcessed prometheus.Counter
	PairsProcessed        prometheus.Counter
	CustomersProcessed    prometheus.Counter

	// Outcome metrics
	ForecastsByMethod *prometheus.CounterVec
	AnomaliesFlagged  *prometheus.CounterVec
	DegradedRuns      *prometheus.CounterVec
	ModelR2           prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "repurchase_lab"
	}

	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Full pipeline run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		MemoHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "memo_hits_total",
			Help:      "Total number of runs answered from the memo cache",
		}),
		MemoMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "memo_misses_total",
			Help:      "Total number of runs computed fresh",
		}),

		// Dataset metrics
		TransactionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "transactions_processed_total",
			Help:      "Total number of input transactions processed",
		}),
		PairsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "pairs_processed_total",
			Help:      "Total number of customer-product pairs processed",
		}),
		CustomersProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "customers_processed_total",
			Help:      "Total number of distinct customers processed",
		}),

		// Outcome metrics
		ForecastsByMethod: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "forecasts_total",
			Help:      "Total number of forecasts produced by method",
		}, []string{"method"}),
		AnomaliesFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "anomaly",
			Name:      "flags_total",
			Help:      "Total number of anomaly flags emitted by severity",
		}, []string{"severity"}),
		DegradedRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "degraded_runs_total",
			Help:      "Total number of runs with a degradation flag",
		}, []string{"flag"}),
		ModelR2: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "ensemble_r2",
			Help:      "Held-out ensemble R2 of the most recent trained model",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a completed pipeline run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordStage records one stage's execution duration.
func RecordStage(stage string, durationSeconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordMemoLookup records a memo cache hit or miss.
func RecordMemoLookup(hit bool) {
	if hit {
		DefaultMetrics.MemoHits.Inc()
	} else {
		DefaultMetrics.MemoMisses.Inc()
	}
}

// RecordDataset records the size counters of one run's input.
func RecordDataset(transactions, pairs, customers int) {
	DefaultMetrics.TransactionsProcessed.Add(float64(transactions))
	DefaultMetrics.PairsProcessed.Add(float64(pairs))
	DefaultMetrics.CustomersProcessed.Add(float64(customers))
}

// RecordForecast increments the forecast counter for a method.
func RecordForecast(method string) {
	DefaultMetrics.ForecastsByMethod.WithLabelValues(method).Inc()
}

// RecordAnomaly increments the anomaly flag counter for a severity.
func RecordAnomaly(severity string) {
	DefaultMetrics.AnomaliesFlagged.WithLabelValues(severity).Inc()
}

// RecordDegradation increments the degraded run counter for a flag.
func RecordDegradation(flag string) {
	DefaultMetrics.DegradedRuns.WithLabelValues(flag).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// TimeDBQuery starts timing one store operation. The returned func records
// the elapsed duration and the error outcome; call it exactly once, usually
// deferred with the method's named error return.
func TimeDBQuery(database, operation string) func(error) {
	start := time.Now()
	return func(err error) {
		RecordDBQuery(database, operation, time.Since(start).Seconds(), err)
	}
}
