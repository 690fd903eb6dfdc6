// Package patternchange classifies each pair's recent cadence against
// its full history: a deterministic threshold rule over two windows of
// gaps, not a statistical test.
package patternchange

import "repurchase-lab/internal/domain"

// minWindowGaps is the floor for both windows: pairs that cannot fill 2
// gaps on each side are skipped, not scored.
const minWindowGaps = 2

// Classify compares the mean of the most recent cfg.TrendWindow gaps
// against the mean of all earlier gaps. Relative changes at or past
// cfg.TrendThreshold flip the label to accelerating (recent gaps
// meaningfully shorter) or decelerating (meaningfully longer); anything
// inside the threshold is stable. Returns nil for pairs below the
// window floor.
func Classify(s *domain.IntervalSeries, cfg domain.Config) *domain.PatternChange {
	n := cfg.TrendWindow
	if n < minWindowGaps {
		n = minWindowGaps
	}
	if len(s.Gaps) < n+minWindowGaps {
		return nil
	}

	split := len(s.Gaps) - n
	histMean := meanOf(s.Gaps[:split])
	recentMean := meanOf(s.Gaps[split:])
	if histMean <= 0 {
		return nil
	}

	rel := (recentMean - histMean) / histMean
	label := domain.TrendStable
	switch {
	case rel <= -cfg.TrendThreshold:
		label = domain.TrendAccelerating
	case rel >= cfg.TrendThreshold:
		label = domain.TrendDecelerating
	}

	return &domain.PatternChange{
		CustomerID:        s.CustomerID,
		ProductID:         s.ProductID,
		Label:             label,
		HistoricalMeanGap: histMean,
		RecentMeanGap:     recentMean,
		RelativeChange:    rel,
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
