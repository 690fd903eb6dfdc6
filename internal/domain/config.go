package domain

import "time"

// ScoreWeights holds the seven confidence-factor weights. Defaults come
// from the source analysis and are configuration to be validated
// empirically, not ground truth; they should sum to 1.
type ScoreWeights struct {
	TrendStability      float64
	RelationshipAge     float64
	QuantityConsistency float64
	SeasonalConsistency float64
	PriceStability      float64
	OverduePenalty      float64
	VolumeRecency       float64
}

// Config is the full configuration surface of the core. Supplied by the
// caller; the core never computes configuration.
type Config struct {
	// ReferenceTime anchors recency features. Zero means "use the maximum
	// transaction timestamp in the snapshot", which keeps identical inputs
	// producing identical outputs.
	ReferenceTime time.Time

	// MinOrdersML is the minimum orders a pair needs for ensemble
	// forecasting; below it the pair gets the statistical fallback.
	MinOrdersML int

	// MinTrainingRows is the minimum usable training rows across the whole
	// dataset; below it the entire run degrades to statistical forecasts.
	MinTrainingRows int

	// Seed drives every stochastic step (split shuffle, bootstrap,
	// k-means init, isolation forest). Fixed seed + fixed input = fixed output.
	Seed int64

	Weights ScoreWeights

	// ClusterCount is k for the archetype clustering.
	ClusterCount int

	// MinOrdersAnomaly is the minimum orders a pair needs before its
	// events are scored for anomalies.
	MinOrdersAnomaly int

	// ReasonStdDevMult is the z-score multiple beyond which a raw feature
	// deviation earns a reason code.
	ReasonStdDevMult float64

	// TrendWindow is N: the number of most recent gaps forming the recent
	// window of the pattern-change detector.
	TrendWindow int

	// TrendThreshold is the relative-change boundary between stable and
	// accelerating/decelerating, as a fraction (0.30 = 30%).
	TrendThreshold float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinOrdersML:     3,
		MinTrainingRows: 10,
		Seed:            42,
		Weights: ScoreWeights{
			TrendStability:      0.25,
			RelationshipAge:     0.20,
			QuantityConsistency: 0.15,
			SeasonalConsistency: 0.10,
			PriceStability:      0.10,
			OverduePenalty:      0.10,
			VolumeRecency:       0.10,
		},
		ClusterCount:     5,
		MinOrdersAnomaly: 4,
		ReasonStdDevMult: 1.5,
		TrendWindow:      3,
		TrendThreshold:   0.30,
	}
}
