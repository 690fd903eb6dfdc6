// Package memo is the explicit memoization layer over pipeline results,
// keyed by the snapshot content hash. It replaces module-level result
// caching with a component the caller owns: compute once, reuse across
// consumers, no global mutable state.
package memo

import (
	"context"

	"repurchase-lab/internal/domain"
)

// Cache stores one RunResult per snapshot ID. A cache hit for a
// snapshot ID is always safe to reuse: identical input produces
// identical results by the core's reproducibility contract.
type Cache interface {
	// Get returns the cached result for a snapshot, or ok=false on miss.
	Get(ctx context.Context, snapshotID string) (result *domain.RunResult, ok bool, err error)

	// Set stores a result under its own SnapshotID.
	Set(ctx context.Context, result *domain.RunResult) error
}
