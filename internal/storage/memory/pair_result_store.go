package memory

import (
	"context"
	"sort"
	"sync"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/storage"
)

type pairResultKey struct {
	snapshotID string
	customerID string
	productID  string
}

// PairResultStore is an in-memory implementation of storage.PairResultStore.
type PairResultStore struct {
	mu   sync.RWMutex
	data map[pairResultKey]*domain.PairResult
}

// NewPairResultStore creates a new in-memory pair result store.
func NewPairResultStore() *PairResultStore {
	return &PairResultStore{data: make(map[pairResultKey]*domain.PairResult)}
}

// Compile-time interface check.
var _ storage.PairResultStore = (*PairResultStore)(nil)

// InsertBulk stores one run's pair results atomically. Fails the whole
// batch on any duplicate (snapshot, customer, product) triple.
func (s *PairResultStore) InsertBulk(_ context.Context, snapshotID string, results []*domain.PairResult) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[pairResultKey]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.CustomerID == "" || r.ProductID == "" {
			return storage.ErrInvalidInput
		}
		key := pairResultKey{snapshotID, r.CustomerID, r.ProductID}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, r := range results {
		cp := *r
		s.data[pairResultKey{snapshotID, r.CustomerID, r.ProductID}] = &cp
	}
	return nil
}

// GetBySnapshot retrieves all pair results of a run, ordered by
// (customer_id, product_id) ASC.
func (s *PairResultStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.PairResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PairResult
	for key, r := range s.data {
		if key.snapshotID == snapshotID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortPairResults(out)
	return out, nil
}

// GetByCustomer retrieves one customer's pair results within a run.
func (s *PairResultStore) GetByCustomer(_ context.Context, snapshotID, customerID string) ([]*domain.PairResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PairResult
	for key, r := range s.data {
		if key.snapshotID == snapshotID && key.customerID == customerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortPairResults(out)
	return out, nil
}

func sortPairResults(results []*domain.PairResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].CustomerID != results[j].CustomerID {
			return results[i].CustomerID < results[j].CustomerID
		}
		return results[i].ProductID < results[j].ProductID
	})
}
