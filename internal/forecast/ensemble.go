// Package forecast trains the two-model tree ensemble that predicts each
// pair's next interorder gap, with empirical confidence bands from
// held-out residuals. Pairs too thin for the models get a flagged
// statistical fallback instead; the method is always recorded.
package forecast

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/features"
)

const holdoutFraction = 0.2

// Band quantiles: 80% uses the 10th/90th residual percentiles, 95% the
// 2.5th/97.5th.
const (
	q80Lo = 0.10
	q80Hi = 0.90
	q95Lo = 0.025
	q95Hi = 0.975
)

// Statistical-fallback band multipliers (normal approximation on the
// pair's own gap spread). Fallback bands therefore carry different
// semantics than the model's empirical bands, which is why
// Forecast.Method must never be inferred from band shape.
const (
	statBand80 = 1.28
	statBand95 = 1.96
)

// quantityDecay is the per-step weight decay of the recency-weighted
// next-quantity estimate (most recent order weighs 1, previous 0.5, ...).
const quantityDecay = 0.5

// TrainingRow is one supervised sample: a pair's features with the final
// gap held out, targeting that final gap.
type TrainingRow struct {
	Key      domain.PairKey
	Features []float64
	Target   float64
}

// BuildTrainingSet derives leave-last-out rows from every pair with at
// least cfg.MinOrdersML orders. Feature extraction anchors at the
// truncated series' last order date so the recency component cannot leak
// the target; prediction-time extraction anchors the same way.
func BuildTrainingSet(series []*domain.IntervalSeries, cfg domain.Config) []*TrainingRow {
	var rows []*TrainingRow
	for _, s := range series {
		if s.OrderCount() < cfg.MinOrdersML {
			continue
		}
		truncated := dropLastOrder(s)
		fv := features.Extract(truncated, truncated.LastOrderDate)
		rows = append(rows, &TrainingRow{
			Key:      s.Key(),
			Features: fv.Vector(),
			Target:   s.Gaps[len(s.Gaps)-1],
		})
	}
	return rows
}

// Model is the trained pair of regressors plus the holdout residual
// distribution backing the confidence bands.
type Model struct {
	bagged    *baggedForest
	boosted   *boostedEnsemble
	residuals []float64 // sorted signed holdout residuals (actual - ensemble)
}

// Train fits both ensembles on a deterministic seeded 80/20 split.
// A nil model with Degraded set in the report means the dataset could
// not train any ML model; callers must fall back to statistical
// forecasts for every pair and surface the dataset-level flag.
func Train(rows []*TrainingRow, cfg domain.Config) (*Model, domain.ModelReport) {
	report := domain.ModelReport{}

	if len(rows) < cfg.MinTrainingRows {
		report.Degraded = true
		report.DegradedReason = "too few training rows across the dataset"
		return nil, report
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	shuffled := make([]*TrainingRow, len(rows))
	copy(shuffled, rows)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	holdoutN := int(float64(len(shuffled)) * holdoutFraction)
	if holdoutN == 0 {
		report.Degraded = true
		report.DegradedReason = "holdout split is empty"
		return nil, report
	}
	holdout := shuffled[:holdoutN]
	train := shuffled[holdoutN:]

	X := make([][]float64, len(train))
	y := make([]float64, len(train))
	for i, r := range train {
		X[i] = r.Features
		y[i] = r.Target
	}

	m := &Model{
		bagged:  fitBagged(X, y, rng),
		boosted: fitBoosted(X, y),
	}

	// Out-of-sample quality per model and for the averaged ensemble.
	actual := make([]float64, len(holdout))
	bagPred := make([]float64, len(holdout))
	boostPred := make([]float64, len(holdout))
	ensPred := make([]float64, len(holdout))
	for i, r := range holdout {
		actual[i] = r.Target
		bagPred[i] = m.bagged.predict(r.Features)
		boostPred[i] = m.boosted.predict(r.Features)
		ensPred[i] = (bagPred[i] + boostPred[i]) / 2
	}

	report.TrainRows = len(train)
	report.HoldoutRows = len(holdout)
	report.Bagged = quality(actual, bagPred)
	report.Boosted = quality(actual, boostPred)
	report.Ensemble = quality(actual, ensPred)

	width := len(rows[0].Features)
	report.BaggedImportance = namedImportance(m.bagged.featureImportance(width))
	report.BoostedImportance = namedImportance(m.boosted.featureImportance(width))

	m.residuals = make([]float64, len(holdout))
	for i := range holdout {
		m.residuals[i] = actual[i] - ensPred[i]
	}
	sort.Float64s(m.residuals)

	return m, report
}

// Predict returns the ensemble point estimate (the arithmetic mean of
// both models, by construction) with the two empirical bands. Gaps are
// non-negative, so band floors clamp at 0.
func (m *Model) Predict(x []float64) (point float64, b80, b95 domain.Band) {
	point = (m.bagged.predict(x) + m.boosted.predict(x)) / 2
	if point < 0 {
		point = 0
	}
	b80 = domain.Band{
		Lower: math.Max(0, point+quantile(m.residuals, q80Lo)),
		Upper: point + quantile(m.residuals, q80Hi),
	}
	b95 = domain.Band{
		Lower: math.Max(0, point+quantile(m.residuals, q95Lo)),
		Upper: point + quantile(m.residuals, q95Hi),
	}
	return point, b80, b95
}

// ForecastPair produces the next-purchase estimate for one pair. The ML
// path requires a trained model and cfg.MinOrdersML orders; everything
// else takes the mean-gap fallback with Method set to statistical.
func ForecastPair(s *domain.IntervalSeries, model *Model, cfg domain.Config) domain.Forecast {
	out := domain.Forecast{
		CustomerID:   s.CustomerID,
		ProductID:    s.ProductID,
		SampleOrders: s.OrderCount(),
		NextQuantity: weightedNextQuantity(s.Quantities),
	}

	if model != nil && s.OrderCount() >= cfg.MinOrdersML {
		fv := features.Extract(s, s.LastOrderDate)
		out.NextGapDays, out.Band80, out.Band95 = model.Predict(fv.Vector())
		out.Method = domain.MethodML
	} else {
		out.NextGapDays, out.Band80, out.Band95 = statisticalEstimate(s.Gaps)
		out.Method = domain.MethodStatistical
	}

	out.PredictedDate = s.LastOrderDate.Add(daysToDuration(out.NextGapDays))
	return out
}

// statisticalEstimate is the thin-data fallback: mean gap with
// normal-approximation bands from the pair's own gap spread. A pair with
// no gaps at all gets the neutral monthly prior and zero-width bands.
func statisticalEstimate(gaps []float64) (point float64, b80, b95 domain.Band) {
	if len(gaps) == 0 {
		point = domain.DefaultGapDays
		return point, domain.Band{Lower: point, Upper: point}, domain.Band{Lower: point, Upper: point}
	}
	point = meanOf(gaps)
	sd := stddevOf(gaps, point)
	b80 = domain.Band{Lower: math.Max(0, point-statBand80*sd), Upper: point + statBand80*sd}
	b95 = domain.Band{Lower: math.Max(0, point-statBand95*sd), Upper: point + statBand95*sd}
	return point, b80, b95
}

// weightedNextQuantity is the recency-weighted mean quantity.
func weightedNextQuantity(quantities []float64) float64 {
	if len(quantities) == 0 {
		return 0
	}
	weight := 1.0
	sum, wsum := 0.0, 0.0
	for i := len(quantities) - 1; i >= 0; i-- {
		sum += weight * quantities[i]
		wsum += weight
		weight *= quantityDecay
	}
	return sum / wsum
}

// dropLastOrder returns a copy of the series without its final order.
func dropLastOrder(s *domain.IntervalSeries) *domain.IntervalSeries {
	n := s.OrderCount() - 1
	t := &domain.IntervalSeries{
		CustomerID:     s.CustomerID,
		ProductID:      s.ProductID,
		OrderDates:     s.OrderDates[:n],
		Quantities:     s.Quantities[:n],
		UnitPrices:     s.UnitPrices[:n],
		FirstOrderDate: s.OrderDates[0],
		LastOrderDate:  s.OrderDates[n-1],
	}
	if n >= 2 {
		t.Gaps = s.Gaps[:n-1]
	}
	return t
}

// quality computes held-out fit metrics. R2 is 0 when the holdout
// targets have no variance (nothing to explain).
func quality(actual, predicted []float64) domain.ModelQuality {
	n := len(actual)
	q := domain.ModelQuality{HoldoutRows: n}
	if n == 0 {
		return q
	}

	m := meanOf(actual)
	ssRes, ssTot, absSum := 0.0, 0.0, 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
		absSum += math.Abs(d)
		t := actual[i] - m
		ssTot += t * t
	}
	q.MAE = absSum / float64(n)
	q.RMSE = math.Sqrt(ssRes / float64(n))
	if ssTot > 0 {
		q.R2 = 1 - ssRes/ssTot
	}
	return q
}

// namedImportance pairs importance weights with feature names, sorted by
// weight descending (name ascending on ties, for determinism).
func namedImportance(weights []float64) []domain.FeatureImportance {
	out := make([]domain.FeatureImportance, len(weights))
	for i, w := range weights {
		out[i] = domain.FeatureImportance{Feature: domain.FeatureNames[i], Weight: w}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// quantile uses linear interpolation over a pre-sorted slice.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
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

func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
