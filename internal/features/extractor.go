// Package features maps interval series to the fixed-length numeric basis
// shared by the confidence scorer, ensemble forecaster, clustering engine
// and anomaly detector. One implementation so the forecaster and clusterer
// never drift apart on feature semantics.
package features

import (
	"math"
	"time"

	"repurchase-lab/internal/domain"
)

const hoursPerDay = 24.0

// Extract computes the per-pair feature vector at the given reference
// time. Every component is defined: thin histories use the documented
// defaults (domain.DefaultGapDays, domain.DefaultCV), never NaN, Inf or a
// zero that would read as low variability.
func Extract(s *domain.IntervalSeries, ref time.Time) *domain.FeatureVector {
	f := &domain.FeatureVector{
		CustomerID: s.CustomerID,
		ProductID:  s.ProductID,
		OrderCount: float64(s.OrderCount()),
	}

	if len(s.Gaps) > 0 {
		f.GapMeanDays = mean(s.Gaps)
		f.GapStdDev = stddev(s.Gaps, f.GapMeanDays)
		f.GapCV = cv(f.GapStdDev, f.GapMeanDays)
	} else {
		f.GapMeanDays = domain.DefaultGapDays
		f.GapStdDev = 0
		f.GapCV = domain.DefaultCV
	}

	f.QuantityMean = mean(s.Quantities)
	f.QuantityCV = seqCV(s.Quantities, f.QuantityMean)
	f.PriceMean = mean(s.UnitPrices)
	f.PriceCV = seqCV(s.UnitPrices, f.PriceMean)

	f.RecencyDays = daysBetween(s.LastOrderDate, ref)
	f.TenureDays = daysBetween(s.FirstOrderDate, ref)
	f.MonthSpread = monthSpread(s.OrderDates)

	return f
}

// ExtractCustomer aggregates one customer's series into the clustering
// basis. Single-order customers participate with the thin-history
// defaults: that is the new-relationship signal, not an exclusion.
func ExtractCustomer(customerID string, series []*domain.IntervalSeries, ref time.Time) *domain.CustomerFeatures {
	c := &domain.CustomerFeatures{
		CustomerID:   customerID,
		ProductCount: float64(len(series)),
	}

	var (
		first, last time.Time
		spend       float64
		orders      int
		allGaps     []float64
	)
	for _, s := range series {
		orders += s.OrderCount()
		for i := range s.OrderDates {
			spend += s.Quantities[i] * s.UnitPrices[i]
		}
		if first.IsZero() || s.FirstOrderDate.Before(first) {
			first = s.FirstOrderDate
		}
		if s.LastOrderDate.After(last) {
			last = s.LastOrderDate
		}
		allGaps = append(allGaps, s.Gaps...)
	}

	c.TotalOrders = float64(orders)
	c.TenureDays = daysBetween(first, ref)
	c.RecencyDays = daysBetween(last, ref)
	if orders > 0 {
		c.OrderValueMean = spend / float64(orders)
	}

	if len(allGaps) > 0 {
		c.GapMeanDays = mean(allGaps)
		c.GapCV = cv(stddev(allGaps, c.GapMeanDays), c.GapMeanDays)
	} else {
		c.GapMeanDays = domain.DefaultGapDays
		c.GapCV = domain.DefaultCV
	}

	return c
}

// mean returns the arithmetic mean, 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev returns the sample standard deviation (n-1 denominator),
// 0 with fewer than 2 samples.
func stddev(xs []float64, mean float64) float64 {
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

// cv returns stddev/mean guarded against a zero or negative mean, in
// which case the maximum-uncertainty default applies.
func cv(stddev, mean float64) float64 {
	if mean <= 0 {
		return domain.DefaultCV
	}
	return stddev / mean
}

// seqCV returns the CV of a value sequence, domain.DefaultCV when the
// sequence is too short to carry a spread.
func seqCV(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return domain.DefaultCV
	}
	return cv(stddev(xs, mean), mean)
}

// monthSpread returns the population variance of the order months
// (1..12). Zero means all orders fall in the same calendar month: a
// strongly seasonal signal.
func monthSpread(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	months := make([]float64, len(dates))
	for i, d := range dates {
		months[i] = float64(d.Month())
	}
	m := mean(months)
	sumSq := 0.0
	for _, x := range months {
		d := x - m
		sumSq += d * d
	}
	return sumSq / float64(len(months))
}

func daysBetween(from, to time.Time) float64 {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	d := to.Sub(from).Hours() / hoursPerDay
	if d < 0 {
		return 0
	}
	return d
}
