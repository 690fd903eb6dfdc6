package memory

import (
	"context"
	"sort"
	"sync"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/storage"
)

type clusterKey struct {
	snapshotID string
	customerID string
}

// ClusterAssignmentStore is an in-memory implementation of
// storage.ClusterAssignmentStore.
type ClusterAssignmentStore struct {
	mu   sync.RWMutex
	data map[clusterKey]*domain.ClusterAssignment
}

// NewClusterAssignmentStore creates a new in-memory assignment store.
func NewClusterAssignmentStore() *ClusterAssignmentStore {
	return &ClusterAssignmentStore{data: make(map[clusterKey]*domain.ClusterAssignment)}
}

// Compile-time interface check.
var _ storage.ClusterAssignmentStore = (*ClusterAssignmentStore)(nil)

// InsertBulk stores one run's assignments atomically. Fails the whole
// batch on any duplicate (snapshot, customer) pair.
func (s *ClusterAssignmentStore) InsertBulk(_ context.Context, snapshotID string, assignments []*domain.ClusterAssignment) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[clusterKey]struct{}, len(assignments))
	for _, a := range assignments {
		if a == nil || a.CustomerID == "" {
			return storage.ErrInvalidInput
		}
		key := clusterKey{snapshotID, a.CustomerID}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, a := range assignments {
		cp := *a
		s.data[clusterKey{snapshotID, a.CustomerID}] = &cp
	}
	return nil
}

// GetBySnapshot retrieves all assignments of a run, ordered by
// customer_id ASC.
func (s *ClusterAssignmentStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.ClusterAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ClusterAssignment
	for key, a := range s.data {
		if key.snapshotID == snapshotID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CustomerID < out[j].CustomerID
	})
	return out, nil
}
