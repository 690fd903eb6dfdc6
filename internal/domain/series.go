package domain

import "time"

// IntervalSeries is the ordered purchase history of one (customer, product)
// pair, refund-free. Recomputed in full on every run; it has no identity
// beyond the run that produced it.
//
// Same-day purchases of one pair merge into a single order: quantities are
// summed and the unit price is quantity-weighted. OrderDates is therefore
// strictly increasing.
type IntervalSeries struct {
	CustomerID string
	ProductID  string

	OrderDates []time.Time // strictly increasing, refund-free
	Quantities []float64   // parallel to OrderDates
	UnitPrices []float64   // parallel to OrderDates

	FirstOrderDate time.Time
	LastOrderDate  time.Time

	// Gaps holds fractional days between consecutive orders.
	// len(Gaps) == len(OrderDates)-1; empty with fewer than 2 orders.
	Gaps []float64
}

// OrderCount returns the number of distinct orders in the series.
func (s *IntervalSeries) OrderCount() int {
	return len(s.OrderDates)
}

// HasIntervals reports whether the pair has enough orders to carry
// interval statistics. Pairs without intervals are excluded from scoring
// and forecasting but still reach clustering as a new-relationship signal.
func (s *IntervalSeries) HasIntervals() bool {
	return len(s.OrderDates) >= 2
}

// PairKey identifies one (customer, product) relationship.
type PairKey struct {
	CustomerID string
	ProductID  string
}

// Key returns the pair identity of the series.
func (s *IntervalSeries) Key() PairKey {
	return PairKey{CustomerID: s.CustomerID, ProductID: s.ProductID}
}
