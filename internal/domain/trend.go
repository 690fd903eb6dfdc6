package domain

// TrendLabel classifies a pair's recent cadence against its history.
type TrendLabel string

const (
	// TrendAccelerating means the recent mean gap is meaningfully shorter.
	TrendAccelerating TrendLabel = "accelerating"

	// TrendDecelerating means the recent mean gap is meaningfully longer.
	TrendDecelerating TrendLabel = "decelerating"

	// TrendStable means the relative change stayed inside the threshold.
	TrendStable TrendLabel = "stable"
)

// PatternChange is one pair's window-comparison result. A deterministic
// threshold rule on the two windows' mean gaps, not a statistical test.
type PatternChange struct {
	CustomerID string
	ProductID  string

	Label             TrendLabel
	HistoricalMeanGap float64 // mean of all but the most recent N gaps
	RecentMeanGap     float64 // mean of the most recent N gaps
	RelativeChange    float64 // (recent-historical)/historical
}
