package memory

import (
	"context"
	"sort"
	"sync"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/storage"
)

// AnomalyFlagStore is an in-memory implementation of
// storage.AnomalyFlagStore.
type AnomalyFlagStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.AnomalyFlag // keyed by snapshot ID
}

// NewAnomalyFlagStore creates a new in-memory anomaly flag store.
func NewAnomalyFlagStore() *AnomalyFlagStore {
	return &AnomalyFlagStore{data: make(map[string][]*domain.AnomalyFlag)}
}

// Compile-time interface check.
var _ storage.AnomalyFlagStore = (*AnomalyFlagStore)(nil)

// InsertBulk stores one run's anomaly flags.
func (s *AnomalyFlagStore) InsertBulk(_ context.Context, snapshotID string, flags []*domain.AnomalyFlag) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	for _, f := range flags {
		if f == nil || f.CustomerID == "" || f.ProductID == "" || f.EventTime.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range flags {
		cp := *f
		cp.Reasons = append([]domain.ReasonCode(nil), f.Reasons...)
		s.data[snapshotID] = append(s.data[snapshotID], &cp)
	}
	return nil
}

// GetBySnapshot retrieves all flags of a run, ordered by
// (customer_id, product_id, event_time) ASC.
func (s *AnomalyFlagStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.AnomalyFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySorted(s.data[snapshotID], ""), nil
}

// GetByCustomer retrieves one customer's flags within a run.
func (s *AnomalyFlagStore) GetByCustomer(_ context.Context, snapshotID, customerID string) ([]*domain.AnomalyFlag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySorted(s.data[snapshotID], customerID), nil
}

func (s *AnomalyFlagStore) copySorted(stored []*domain.AnomalyFlag, customerID string) []*domain.AnomalyFlag {
	out := make([]*domain.AnomalyFlag, 0, len(stored))
	for _, f := range stored {
		if customerID != "" && f.CustomerID != customerID {
			continue
		}
		cp := *f
		cp.Reasons = append([]domain.ReasonCode(nil), f.Reasons...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].EventTime.Before(out[j].EventTime)
	})
	return out
}
