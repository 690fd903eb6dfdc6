package memory

import (
	"context"
	"sort"
	"sync"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/storage"
)

// FeatureVectorStore is an in-memory implementation of
// storage.FeatureVectorStore.
type FeatureVectorStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.FeatureVector // keyed by snapshot ID
}

// NewFeatureVectorStore creates a new in-memory feature vector store.
func NewFeatureVectorStore() *FeatureVectorStore {
	return &FeatureVectorStore{data: make(map[string][]*domain.FeatureVector)}
}

// Compile-time interface check.
var _ storage.FeatureVectorStore = (*FeatureVectorStore)(nil)

// InsertBulk stores one run's feature vectors.
func (s *FeatureVectorStore) InsertBulk(_ context.Context, snapshotID string, vectors []*domain.FeatureVector) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	for _, v := range vectors {
		if v == nil || v.CustomerID == "" || v.ProductID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vectors {
		cp := *v
		s.data[snapshotID] = append(s.data[snapshotID], &cp)
	}
	return nil
}

// GetBySnapshot retrieves all vectors of a run, ordered by
// (customer_id, product_id) ASC.
func (s *FeatureVectorStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.FeatureVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[snapshotID]
	out := make([]*domain.FeatureVector, 0, len(stored))
	for _, v := range stored {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}
