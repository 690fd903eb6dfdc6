// Package aggregation turns the raw transaction snapshot into per-pair
// ordered interval series. Stage 1 of the pipeline; pure function of its
// input.
package aggregation

import (
	"sort"
	"time"

	"repurchase-lab/internal/domain"
)

const hoursPerDay = 24.0

// BuildSeries validates the snapshot and produces one IntervalSeries per
// (customer, product) pair with at least one non-refund order.
//
// Rules:
//   - every record is validated first; any contract violation fails the
//     whole invocation with the offending record identified
//   - refund rows are dropped from every series
//   - same-day purchases of one pair merge into one order (quantities
//     summed, unit price quantity-weighted)
//   - gaps are fractional days between consecutive order dates
//
// Output is sorted by (customer_id, product_id) for deterministic
// downstream iteration.
func BuildSeries(txs []domain.Transaction) ([]*domain.IntervalSeries, error) {
	if err := Validate(txs); err != nil {
		return nil, err
	}

	type dayOrder struct {
		date     time.Time
		quantity float64
		spend    float64 // quantity * unit_price, for weighted price
	}

	byPair := make(map[domain.PairKey]map[time.Time]*dayOrder)
	for _, tx := range txs {
		if tx.IsRefund {
			continue
		}
		key := domain.PairKey{CustomerID: tx.CustomerID, ProductID: tx.ProductID}
		date := orderDate(tx.Timestamp)

		days := byPair[key]
		if days == nil {
			days = make(map[time.Time]*dayOrder)
			byPair[key] = days
		}
		d := days[date]
		if d == nil {
			d = &dayOrder{date: date}
			days[date] = d
		}
		d.quantity += tx.Quantity
		d.spend += tx.Quantity * tx.UnitPrice
	}

	series := make([]*domain.IntervalSeries, 0, len(byPair))
	for key, days := range byPair {
		orders := make([]*dayOrder, 0, len(days))
		for _, d := range days {
			orders = append(orders, d)
		}
		sort.Slice(orders, func(i, j int) bool {
			return orders[i].date.Before(orders[j].date)
		})

		s := &domain.IntervalSeries{
			CustomerID: key.CustomerID,
			ProductID:  key.ProductID,
			OrderDates: make([]time.Time, len(orders)),
			Quantities: make([]float64, len(orders)),
			UnitPrices: make([]float64, len(orders)),
		}
		for i, d := range orders {
			s.OrderDates[i] = d.date
			s.Quantities[i] = d.quantity
			s.UnitPrices[i] = d.spend / d.quantity
		}
		s.FirstOrderDate = s.OrderDates[0]
		s.LastOrderDate = s.OrderDates[len(s.OrderDates)-1]

		if len(s.OrderDates) >= 2 {
			s.Gaps = make([]float64, len(s.OrderDates)-1)
			for i := 1; i < len(s.OrderDates); i++ {
				s.Gaps[i-1] = s.OrderDates[i].Sub(s.OrderDates[i-1]).Hours() / hoursPerDay
			}
		}
		series = append(series, s)
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].CustomerID != series[j].CustomerID {
			return series[i].CustomerID < series[j].CustomerID
		}
		return series[i].ProductID < series[j].ProductID
	})

	return series, nil
}

// Validate checks the input contract for every record. Returns a
// *domain.RecordError for the first violation; never skips a bad row.
func Validate(txs []domain.Transaction) error {
	for i, tx := range txs {
		if tx.CustomerID == "" {
			return &domain.RecordError{Index: i, Field: "customer_id", Reason: "missing"}
		}
		if tx.ProductID == "" {
			return &domain.RecordError{Index: i, Field: "product_id", Reason: "missing"}
		}
		if tx.Timestamp.IsZero() {
			return &domain.RecordError{Index: i, Field: "timestamp", Reason: "missing"}
		}
		if tx.IsRefund != (tx.Total < 0) {
			return &domain.RecordError{Index: i, Field: "is_refund", Reason: "inconsistent with total sign"}
		}
		if !tx.IsRefund && tx.Quantity <= 0 {
			return &domain.RecordError{Index: i, Field: "quantity", Reason: "must be positive on non-refund rows"}
		}
	}
	return nil
}

// ReferenceTime resolves the recency anchor for a snapshot: the configured
// time if set, otherwise the maximum non-refund transaction timestamp.
// Refund rows are excluded here too, so a late refund cannot shift recency
// or tenure features. Using the snapshot's own maximum keeps reruns on
// identical data reproducible.
func ReferenceTime(cfg domain.Config, txs []domain.Transaction) time.Time {
	if !cfg.ReferenceTime.IsZero() {
		return cfg.ReferenceTime
	}
	var max time.Time
	for _, tx := range txs {
		if tx.IsRefund {
			continue
		}
		if tx.Timestamp.After(max) {
			max = tx.Timestamp
		}
	}
	return max
}

// orderDate truncates a timestamp to its UTC calendar date.
func orderDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
