package pipeline

import (
	"fmt"
	"math/rand"
	"time"

	"repurchase-lab/internal/domain"
)

// FixtureTransactions generates a deterministic synthetic transaction log
// for demos and end-to-end tests: a population of regular customers, a few
// disrupted and thin histories, and some refund rows.
func FixtureTransactions(seed int64) []domain.Transaction {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2023, 1, 10, 9, 0, 0, 0, time.UTC)

	var txs []domain.Transaction
	add := func(customerID, productID string, ts time.Time, quantity, unitPrice float64) {
		txs = append(txs, domain.Transaction{
			CustomerID: customerID,
			ProductID:  productID,
			Timestamp:  ts,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			Total:      quantity * unitPrice,
		})
	}

	// Regular monthly buyers, slightly jittered cadence.
	for c := 0; c < 12; c++ {
		customerID := fmt.Sprintf("CUST-%03d", c+1)
		productID := fmt.Sprintf("PROD-%02d", c%4+1)
		price := 8 + float64(c%5)
		ts := base.AddDate(0, 0, c)
		for o := 0; o < 10; o++ {
			add(customerID, productID, ts, float64(1+rng.Intn(3)), price)
			ts = ts.Add(time.Duration((28 + rng.Float64()*4) * 24 * float64(time.Hour)))
		}
	}

	// A disrupted history: steady cadence, then a long gap and a quick
	// follow-up purchase.
	ts := base
	for _, gapDays := range []float64{0, 30, 31, 29, 30, 60, 15} {
		ts = ts.Add(time.Duration(gapDays * 24 * float64(time.Hour)))
		add("CUST-DISRUPTED", "PROD-01", ts, 2, 10)
	}

	// Thin histories.
	add("CUST-NEW", "PROD-02", base.AddDate(0, 2, 0), 1, 12)
	add("CUST-TWICE", "PROD-03", base, 1, 6)
	add("CUST-TWICE", "PROD-03", base.AddDate(0, 0, 45), 2, 6)

	// Refund rows, excluded from every computation.
	txs = append(txs, domain.Transaction{
		CustomerID: "CUST-001",
		ProductID:  "PROD-01",
		Timestamp:  base.AddDate(0, 3, 2),
		Quantity:   1,
		UnitPrice:  8,
		Total:      -8,
		IsRefund:   true,
	})

	return txs
}
