package domain

import "time"

// ForecastMethod distinguishes a modelled estimate from a thin-data
// fallback. The two carry different confidence-band semantics, so the
// method is always recorded, never inferred.
type ForecastMethod string

const (
	// MethodML marks a prediction from the trained tree ensemble.
	MethodML ForecastMethod = "ml"

	// MethodStatistical marks the mean-gap fallback used for pairs below
	// the ML minimum or when the whole dataset degrades.
	MethodStatistical ForecastMethod = "statistical"
)

// Band is one empirical confidence interval in days around a forecast.
type Band struct {
	Lower float64
	Upper float64
}

// Forecast is the next-purchase estimate for one pair.
type Forecast struct {
	CustomerID string
	ProductID  string

	NextGapDays   float64   // point estimate of days from last order to next
	PredictedDate time.Time // last order date + NextGapDays
	Band80        Band      // planning interval
	Band95        Band      // conservative interval
	NextQuantity  float64   // recency-weighted mean quantity, always statistical

	Method       ForecastMethod
	SampleOrders int // orders backing this pair's estimate
}

// ModelQuality reports held-out fit metrics for a trained regressor.
// Exposed, not hidden: a near-zero R2 forecaster must not present with the
// same authority as a well-fit one.
type ModelQuality struct {
	R2          float64
	MAE         float64
	RMSE        float64
	HoldoutRows int
}

// FeatureImportance is one feature's normalized share of split
// variance reduction in a trained model.
type FeatureImportance struct {
	Feature string
	Weight  float64
}

// ModelReport describes one run's ensemble training outcome.
type ModelReport struct {
	TrainRows   int
	HoldoutRows int

	// Degraded is set when the dataset could not train any ML model; every
	// pair then carries the statistical fallback.
	Degraded       bool
	DegradedReason string

	Bagged   ModelQuality
	Boosted  ModelQuality
	Ensemble ModelQuality

	BaggedImportance  []FeatureImportance
	BoostedImportance []FeatureImportance
}
