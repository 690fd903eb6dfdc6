package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurchase-lab/internal/domain"
)

func TestAnomalyFlagStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAnomalyFlagStore(conn)

	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	flags := []*domain.AnomalyFlag{
		{
			CustomerID: "C1", ProductID: "P1", EventTime: t2,
			Score: 0.74, Severity: domain.SeverityHigh,
			Reasons: []domain.ReasonCode{domain.ReasonUnexpectedGap, domain.ReasonQuantitySpike},
		},
		{
			CustomerID: "C1", ProductID: "P1", EventTime: t1,
			Score: 0.55, Severity: domain.SeverityLow,
			Reasons: []domain.ReasonCode{domain.ReasonPriceShift},
		},
		{
			CustomerID: "C2", ProductID: "P3", EventTime: t1,
			Score: 0.63, Severity: domain.SeverityMedium,
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "snap1", flags))

	got, err := store.GetBySnapshot(ctx, "snap1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by (customer_id, product_id, event_time) ASC.
	assert.True(t, got[0].EventTime.Equal(t1))
	assert.True(t, got[1].EventTime.Equal(t2))
	assert.Equal(t, "C2", got[2].CustomerID)

	assert.InDelta(t, 0.74, got[1].Score, 0.0001)
	assert.Equal(t, domain.SeverityHigh, got[1].Severity)
	require.Len(t, got[1].Reasons, 2)
	assert.Equal(t, domain.ReasonUnexpectedGap, got[1].Reasons[0])

	byCustomer, err := store.GetByCustomer(ctx, "snap1", "C2")
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "P3", byCustomer[0].ProductID)
	assert.Empty(t, byCustomer[0].Reasons)
}
