// Package idhash derives deterministic content identities for input
// snapshots. The snapshot ID keys the memoization layer: identical
// transaction sets always hash identically, regardless of input order.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"

	"repurchase-lab/internal/domain"
)

// SnapshotID computes the content hash of a transaction set.
// Records are canonicalized (sorted on every field) before hashing, so
// the ID depends only on content, then base58-encoded for a compact,
// log-friendly run identifier.
func SnapshotID(txs []domain.Transaction) string {
	canonical := make([]domain.Transaction, len(txs))
	copy(canonical, txs)
	sort.Slice(canonical, func(i, j int) bool {
		a, b := canonical[i], canonical[j]
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Total != b.Total {
			return a.Total < b.Total
		}
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		return a.UnitPrice < b.UnitPrice
	})

	h := sha256.New()
	for _, tx := range canonical {
		fmt.Fprintf(h, "%s|%s|%d|%g|%g|%g|%t\n",
			tx.CustomerID,
			tx.ProductID,
			tx.Timestamp.UTC().UnixMilli(),
			tx.Quantity,
			tx.UnitPrice,
			tx.Total,
			tx.IsRefund,
		)
	}
	return base58.Encode(h.Sum(nil))
}
