// Package scoring combines seven weighted behavioral factors into one
// 0-100 confidence score per pair. Pure and deterministic: it never
// fails, only produces degenerate low scores on thin data.
package scoring

import (
	"time"

	"repurchase-lab/internal/domain"
)

// Saturation constants for the time-based factors.
const (
	// ageHalfDays is the tenure at which the relationship-age factor
	// reaches 0.5; growth saturates past it (diminishing returns).
	ageHalfDays = 365.0

	// overdueCutoff is the overdue ratio (days since last order divided
	// by mean gap) at which the gap-analysis factor bottoms out at 0.
	overdueCutoff = 3.0

	// volumeSaturation is the order count at which the volume half of the
	// volume-and-recency factor saturates at 1.
	volumeSaturation = 12.0
)

// Score computes the composite confidence for one pair from its series
// and feature vector. Pairs with fewer than 2 orders get the fixed
// domain.ThinHistoryScore: most factors are undefined on a single point.
func Score(s *domain.IntervalSeries, f *domain.FeatureVector, cfg domain.Config) domain.ConfidenceScore {
	out := domain.ConfidenceScore{
		CustomerID: s.CustomerID,
		ProductID:  s.ProductID,
	}

	if !s.HasIntervals() {
		out.Value = domain.ThinHistoryScore
		out.ThinHistory = true
		return out
	}

	fb := domain.FactorBreakdown{
		TrendStability:      inverseCV(f.GapCV),
		RelationshipAge:     f.TenureDays / (f.TenureDays + ageHalfDays),
		QuantityConsistency: inverseCV(f.QuantityCV),
		SeasonalConsistency: seasonalConsistency(s.OrderDates),
		PriceStability:      inverseCV(f.PriceCV),
		OverduePenalty:      overdueFactor(f.RecencyDays, f.GapMeanDays),
		VolumeRecency:       volumeRecency(f.OrderCount, f.RecencyDays, f.GapMeanDays),
	}
	out.Factors = fb

	w := cfg.Weights
	sum := w.TrendStability*fb.TrendStability +
		w.RelationshipAge*fb.RelationshipAge +
		w.QuantityConsistency*fb.QuantityConsistency +
		w.SeasonalConsistency*fb.SeasonalConsistency +
		w.PriceStability*fb.PriceStability +
		w.OverduePenalty*fb.OverduePenalty +
		w.VolumeRecency*fb.VolumeRecency

	out.Value = clamp(sum*100, 0, 100)
	return out
}

// inverseCV maps a coefficient of variation to (0,1]: 1 at perfect
// regularity, falling as variability grows.
func inverseCV(cv float64) float64 {
	if cv < 0 {
		cv = 0
	}
	return 1 / (1 + cv)
}

// overdueFactor is 1 while the pair is not past its mean gap, then falls
// linearly to 0 at overdueCutoff times the mean gap.
func overdueFactor(recencyDays, meanGap float64) float64 {
	if meanGap <= 0 {
		return 0
	}
	ratio := recencyDays / meanGap
	if ratio <= 1 {
		return 1
	}
	return clamp((overdueCutoff-ratio)/(overdueCutoff-1), 0, 1)
}

// volumeRecency blends a saturating order count with a saturating
// recency term. Recency is measured against the pair's own cadence: a
// quarterly buyer 40 days quiet is fresher than a weekly buyer 40 days
// quiet.
func volumeRecency(orderCount, recencyDays, meanGap float64) float64 {
	volume := orderCount / volumeSaturation
	if volume > 1 {
		volume = 1
	}
	recency := 0.0
	if meanGap > 0 {
		recency = meanGap / (meanGap + recencyDays)
	}
	return 0.5*volume + 0.5*recency
}

// seasonalConsistency measures whether purchases recur in the same
// calendar months across years: the fraction of the most recent year's
// purchase months already seen in earlier years. Histories spanning
// fewer than 2 calendar years get a neutral 0.5.
func seasonalConsistency(dates []time.Time) float64 {
	monthsByYear := make(map[int]map[time.Month]bool)
	lastYear := 0
	for _, d := range dates {
		y := d.Year()
		if monthsByYear[y] == nil {
			monthsByYear[y] = make(map[time.Month]bool)
		}
		monthsByYear[y][d.Month()] = true
		if y > lastYear {
			lastYear = y
		}
	}
	if len(monthsByYear) < 2 {
		return 0.5
	}

	earlier := make(map[time.Month]bool)
	for y, months := range monthsByYear {
		if y == lastYear {
			continue
		}
		for m := range months {
			earlier[m] = true
		}
	}

	recent := monthsByYear[lastYear]
	seen := 0
	for m := range recent {
		if earlier[m] {
			seen++
		}
	}
	return float64(seen) / float64(len(recent))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
