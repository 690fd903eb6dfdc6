package domain

import (
	"fmt"
	"time"
)

// Transaction is one cleaned row of the retail transaction log.
// Produced by the upstream normalizer; the core only checks field presence
// and the refund invariant, never file formats.
// Invariant: IsRefund == (Total < 0).
type Transaction struct {
	CustomerID string    // customer identifier, non-empty
	ProductID  string    // product identifier, non-empty
	Timestamp  time.Time // purchase time, non-zero
	Quantity   float64   // units purchased, > 0 for non-refund rows
	UnitPrice  float64   // price per unit
	Total      float64   // quantity * unit_price, negative on refunds
	IsRefund   bool      // refund rows are excluded from every computation
}

// RecordError identifies a single transaction that violates the input
// contract. Contract violations are fatal for the whole invocation:
// silently skipping a malformed row would distort every aggregate.
type RecordError struct {
	Index  int    // position of the record in the input sequence
	Field  string // offending field name
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("transaction %d: field %q: %s", e.Index, e.Field, e.Reason)
}
