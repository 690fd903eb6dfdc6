package postgres

import (
	"context"
	"fmt"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/storage"
)

// ClusterAssignmentStore implements storage.ClusterAssignmentStore using
// PostgreSQL.
type ClusterAssignmentStore struct {
	pool *Pool
}

// NewClusterAssignmentStore creates a new ClusterAssignmentStore.
func NewClusterAssignmentStore(pool *Pool) *ClusterAssignmentStore {
	return &ClusterAssignmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClusterAssignmentStore = (*ClusterAssignmentStore)(nil)

// InsertBulk stores one run's assignments atomically. Fails the whole
// batch on any duplicate (snapshot, customer) pair.
func (s *ClusterAssignmentStore) InsertBulk(ctx context.Context, snapshotID string, assignments []*domain.ClusterAssignment) (err error) {
	done := observability.TimeDBQuery("postgres", "cluster_assignments_insert_bulk")
	defer func() { done(err) }()

	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(assignments) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO cluster_assignments (
			snapshot_id, customer_id, cluster, distance, archetype
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, a := range assignments {
		if a == nil || a.CustomerID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			snapshotID, a.CustomerID, a.Cluster, a.Distance, a.Archetype,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert cluster assignment in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySnapshot retrieves all assignments of a run, ordered by
// customer_id ASC.
func (s *ClusterAssignmentStore) GetBySnapshot(ctx context.Context, snapshotID string) (assignments []*domain.ClusterAssignment, err error) {
	done := observability.TimeDBQuery("postgres", "cluster_assignments_get_by_snapshot")
	defer func() { done(err) }()

	query := `
		SELECT customer_id, cluster, distance, archetype
		FROM cluster_assignments
		WHERE snapshot_id = $1
		ORDER BY customer_id ASC
	`
	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query cluster assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.ClusterAssignment
		if err := rows.Scan(&a.CustomerID, &a.Cluster, &a.Distance, &a.Archetype); err != nil {
			return nil, fmt.Errorf("scan cluster assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster assignments: %w", err)
	}

	return assignments, nil
}
