// Package anomaly flags individual purchase events that deviate from
// their own pair's history. One global isolation forest over per-pair
// z-score normalized event features; per-pair training would be too
// data-poor at typical retail history lengths, so that choice is fixed
// here, not configurable.
package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"repurchase-lab/internal/domain"
)

// Severity thresholds partition the flagged score range [0.5, 1]
// without gaps or overlaps; scores below flagThreshold are not emitted.
const (
	flagThreshold   = 0.5
	mediumThreshold = 0.6
	highThreshold   = 0.7
)

// event is one scored purchase: per-pair z-scores of interval, quantity
// and unit price, with the raw context kept for reason derivation.
type event struct {
	series   *domain.IntervalSeries
	orderIdx int
	zs       [3]float64 // interval, quantity, price
}

// Detect scores every eligible purchase event. An event is eligible when
// its pair has at least cfg.MinOrdersAnomaly orders and the event is not
// the pair's first (a first order has no interval). skipped is true when
// no pair is rich enough to contribute any event.
//
// Output is sorted by (customer, product, event time) and contains only
// events at or past the low-severity threshold.
func Detect(series []*domain.IntervalSeries, cfg domain.Config) (flags []*domain.AnomalyFlag, skipped bool) {
	events := collectEvents(series, cfg)
	if len(events) == 0 {
		return nil, true
	}

	samples := make([][]float64, len(events))
	for i, e := range events {
		samples[i] = []float64{e.zs[0], e.zs[1], e.zs[2]}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	forest := fitForest(samples, rng)

	for i, e := range events {
		score := forest.score(samples[i])
		if score < flagThreshold {
			continue
		}
		flags = append(flags, &domain.AnomalyFlag{
			CustomerID: e.series.CustomerID,
			ProductID:  e.series.ProductID,
			EventTime:  e.series.OrderDates[e.orderIdx],
			Score:      score,
			Severity:   severityOf(score),
			Reasons:    reasonsFor(e, cfg.ReasonStdDevMult),
		})
	}

	sort.Slice(flags, func(i, j int) bool {
		a, b := flags[i], flags[j]
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.EventTime.Before(b.EventTime)
	})
	return flags, false
}

// collectEvents normalizes each eligible event against its own pair's
// statistics. A zero stddev yields a zero z-score: no deviation is
// measurable there.
func collectEvents(series []*domain.IntervalSeries, cfg domain.Config) []*event {
	var events []*event
	for _, s := range series {
		if s.OrderCount() < cfg.MinOrdersAnomaly {
			continue
		}
		gapMean := meanOf(s.Gaps)
		gapStd := stddevOf(s.Gaps, gapMean)
		qtyMean := meanOf(s.Quantities)
		qtyStd := stddevOf(s.Quantities, qtyMean)
		priceMean := meanOf(s.UnitPrices)
		priceStd := stddevOf(s.UnitPrices, priceMean)

		for i := 1; i < s.OrderCount(); i++ {
			events = append(events, &event{
				series:   s,
				orderIdx: i,
				zs: [3]float64{
					zScore(s.Gaps[i-1], gapMean, gapStd),
					zScore(s.Quantities[i], qtyMean, qtyStd),
					zScore(s.UnitPrices[i], priceMean, priceStd),
				},
			})
		}
	}
	return events
}

// severityOf buckets a score: low [0.5,0.6), medium [0.6,0.7), high [0.7,1].
func severityOf(score float64) domain.Severity {
	switch {
	case score >= highThreshold:
		return domain.SeverityHigh
	case score >= mediumThreshold:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// reasonsFor derives reason codes from the raw per-pair z-scores, never
// from the forest's internals: isolation scores are not attributable to
// a single feature.
func reasonsFor(e *event, mult float64) []domain.ReasonCode {
	var reasons []domain.ReasonCode
	switch {
	case e.zs[0] > mult:
		reasons = append(reasons, domain.ReasonUnexpectedGap)
	case e.zs[0] < -mult:
		reasons = append(reasons, domain.ReasonIntervalJump)
	}
	if math.Abs(e.zs[1]) > mult {
		reasons = append(reasons, domain.ReasonQuantitySpike)
	}
	if math.Abs(e.zs[2]) > mult {
		reasons = append(reasons, domain.ReasonPriceShift)
	}
	return reasons
}

func zScore(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
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

func stddevOf(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
