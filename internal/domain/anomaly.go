package domain

import "time"

// Severity buckets a continuous anomaly score via fixed thresholds.
// The tiers partition the flagged score range without gaps or overlaps:
// low [0.5,0.6), medium [0.6,0.7), high [0.7,1]. Scores below 0.5 are not
// flagged at all.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ReasonCode attributes an anomaly to a raw feature deviation. Codes come
// from comparing each raw feature against the pair's own mean +- a
// multiple of its stddev, never from the isolation model's internal state.
type ReasonCode string

const (
	// ReasonIntervalJump marks a purchase far sooner than the pair's usual gap.
	ReasonIntervalJump ReasonCode = "interval_jump"

	// ReasonUnexpectedGap marks a purchase far later than the pair's usual gap.
	ReasonUnexpectedGap ReasonCode = "unexpected_gap"

	// ReasonQuantitySpike marks a quantity far outside the pair's usual range.
	ReasonQuantitySpike ReasonCode = "quantity_spike"

	// ReasonPriceShift marks a unit price far outside the pair's usual range.
	ReasonPriceShift ReasonCode = "price_shift"
)

// AnomalyFlag scores one historical purchase event against its own pair's
// distribution. Only events at or above the low-severity threshold are
// emitted.
type AnomalyFlag struct {
	CustomerID string
	ProductID  string
	EventTime  time.Time

	Score    float64 // isolation score in (0,1), higher is more anomalous
	Severity Severity
	Reasons  []ReasonCode
}
