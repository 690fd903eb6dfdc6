package idhash

import (
	"testing"
	"time"

	"repurchase-lab/internal/domain"
)

func sampleTxs() []domain.Transaction {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Transaction{
		{CustomerID: "c1", ProductID: "p1", Timestamp: t1, Quantity: 2, UnitPrice: 10, Total: 20},
		{CustomerID: "c2", ProductID: "p1", Timestamp: t2, Quantity: 1, UnitPrice: 5, Total: 5},
	}
}

func TestSnapshotID_OrderIndependent(t *testing.T) {
	txs := sampleTxs()
	reversed := []domain.Transaction{txs[1], txs[0]}

	if SnapshotID(txs) != SnapshotID(reversed) {
		t.Error("input order must not change the snapshot ID")
	}
}

func TestSnapshotID_OrderIndependentOnNearDuplicates(t *testing.T) {
	// Two rows equal on customer, product, timestamp and total but with
	// different quantity and unit price must still hash identically under
	// permutation.
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a := domain.Transaction{CustomerID: "c1", ProductID: "p1", Timestamp: ts, Quantity: 2, UnitPrice: 5, Total: 10}
	b := domain.Transaction{CustomerID: "c1", ProductID: "p1", Timestamp: ts, Quantity: 5, UnitPrice: 2, Total: 10}

	if SnapshotID([]domain.Transaction{a, b}) != SnapshotID([]domain.Transaction{b, a}) {
		t.Error("permuting near-duplicate rows changed the snapshot ID")
	}
}

func TestSnapshotID_ContentSensitive(t *testing.T) {
	txs := sampleTxs()
	modified := sampleTxs()
	modified[0].Quantity = 3

	if SnapshotID(txs) == SnapshotID(modified) {
		t.Error("different content must produce different IDs")
	}
}

func TestSnapshotID_Deterministic(t *testing.T) {
	txs := sampleTxs()
	a := SnapshotID(txs)
	b := SnapshotID(txs)
	if a != b {
		t.Errorf("identical input produced different IDs: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("snapshot ID must not be empty")
	}
}
