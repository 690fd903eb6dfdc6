package memory

import (
	"context"
	"testing"
	"time"

	"repurchase-lab/internal/domain"
)

func TestAnomalyFlagStore_InsertAndGet(t *testing.T) {
	store := NewAnomalyFlagStore()
	ctx := context.Background()

	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	flags := []*domain.AnomalyFlag{
		{CustomerID: "C1", ProductID: "P1", EventTime: t2, Score: 0.72, Severity: domain.SeverityHigh, Reasons: []domain.ReasonCode{domain.ReasonUnexpectedGap}},
		{CustomerID: "C1", ProductID: "P1", EventTime: t1, Score: 0.55, Severity: domain.SeverityLow, Reasons: []domain.ReasonCode{domain.ReasonQuantitySpike}},
		{CustomerID: "C2", ProductID: "P3", EventTime: t1, Score: 0.61, Severity: domain.SeverityMedium},
	}
	if err := store.InsertBulk(ctx, "snap1", flags); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySnapshot(ctx, "snap1")
	if err != nil {
		t.Fatalf("GetBySnapshot failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(got))
	}

	// Ordered by (customer_id, product_id, event_time) ASC.
	if !got[0].EventTime.Equal(t1) || got[0].CustomerID != "C1" {
		t.Errorf("flag 0: got %s @ %v", got[0].CustomerID, got[0].EventTime)
	}
	if !got[1].EventTime.Equal(t2) {
		t.Errorf("flag 1: expected the later C1 event, got %v", got[1].EventTime)
	}
	if got[2].CustomerID != "C2" {
		t.Errorf("flag 2: got customer %s, want C2", got[2].CustomerID)
	}

	byCustomer, err := store.GetByCustomer(ctx, "snap1", "C2")
	if err != nil {
		t.Fatalf("GetByCustomer failed: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].ProductID != "P3" {
		t.Errorf("GetByCustomer: got %+v", byCustomer)
	}
}

func TestAnomalyFlagStore_CopiesReasons(t *testing.T) {
	store := NewAnomalyFlagStore()
	ctx := context.Background()

	flag := &domain.AnomalyFlag{
		CustomerID: "C1", ProductID: "P1",
		EventTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Score:     0.66, Severity: domain.SeverityMedium,
		Reasons: []domain.ReasonCode{domain.ReasonPriceShift},
	}
	if err := store.InsertBulk(ctx, "snap1", []*domain.AnomalyFlag{flag}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Mutating the caller's slice must not affect stored data.
	flag.Reasons[0] = domain.ReasonIntervalJump

	got, err := store.GetBySnapshot(ctx, "snap1")
	if err != nil {
		t.Fatalf("GetBySnapshot failed: %v", err)
	}
	if got[0].Reasons[0] != domain.ReasonPriceShift {
		t.Errorf("stored reason mutated: got %s", got[0].Reasons[0])
	}
}
