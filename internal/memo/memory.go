package memo

import (
	"context"
	"sync"

	"repurchase-lab/internal/domain"
)

// MemoryCache is the in-process Cache, scoped to whoever holds it.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*domain.RunResult
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]*domain.RunResult)}
}

// Compile-time interface check.
var _ Cache = (*MemoryCache)(nil)

// Get returns the cached result for a snapshot, or ok=false on miss.
func (c *MemoryCache) Get(_ context.Context, snapshotID string) (*domain.RunResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.data[snapshotID]
	return r, ok, nil
}

// Set stores a result under its own SnapshotID.
func (c *MemoryCache) Set(_ context.Context, result *domain.RunResult) error {
	if result == nil || result.SnapshotID == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[result.SnapshotID] = result
	return nil
}
