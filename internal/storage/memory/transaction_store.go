package memory

import (
	"context"
	"sort"
	"sync"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data []domain.Transaction
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// InsertBulk appends transactions. Returns ErrInvalidInput if any record
// is missing its identity fields.
func (s *TransactionStore) InsertBulk(_ context.Context, txs []domain.Transaction) error {
	for _, tx := range txs {
		if tx.CustomerID == "" || tx.ProductID == "" || tx.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, txs...)
	return nil
}

// GetAll retrieves the full snapshot ordered by timestamp ASC.
func (s *TransactionStore) GetAll(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, len(s.data))
	copy(out, s.data)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
