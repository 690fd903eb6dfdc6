package storage

import (
	"context"

	"repurchase-lab/internal/domain"
)

// TransactionStore provides access to the materialized transaction
// snapshot the pipeline runs on.
type TransactionStore interface {
	// InsertBulk appends transactions. Returns ErrInvalidInput if any
	// record is missing its identity fields.
	InsertBulk(ctx context.Context, txs []domain.Transaction) error

	// GetAll retrieves the full snapshot ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]domain.Transaction, error)
}

// PairResultStore persists per-pair pipeline output keyed by snapshot.
type PairResultStore interface {
	// InsertBulk stores one run's pair results. Returns ErrDuplicateKey
	// if the (snapshot, customer, product) triple already exists.
	InsertBulk(ctx context.Context, snapshotID string, results []*domain.PairResult) error

	// GetBySnapshot retrieves all pair results of a run, ordered by
	// (customer_id, product_id) ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.PairResult, error)

	// GetByCustomer retrieves one customer's pair results within a run.
	GetByCustomer(ctx context.Context, snapshotID, customerID string) ([]*domain.PairResult, error)
}

// ClusterAssignmentStore persists per-customer archetype assignments.
type ClusterAssignmentStore interface {
	// InsertBulk stores one run's assignments. Returns ErrDuplicateKey
	// if a (snapshot, customer) pair already exists.
	InsertBulk(ctx context.Context, snapshotID string, assignments []*domain.ClusterAssignment) error

	// GetBySnapshot retrieves all assignments of a run, ordered by
	// customer_id ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.ClusterAssignment, error)
}

// FeatureVectorStore persists the per-pair feature basis of a run.
// High-volume analytical table; lives in ClickHouse in DB mode.
type FeatureVectorStore interface {
	// InsertBulk stores one run's feature vectors.
	InsertBulk(ctx context.Context, snapshotID string, vectors []*domain.FeatureVector) error

	// GetBySnapshot retrieves all vectors of a run, ordered by
	// (customer_id, product_id) ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.FeatureVector, error)
}

// AnomalyFlagStore persists flagged purchase events of a run.
type AnomalyFlagStore interface {
	// InsertBulk stores one run's anomaly flags.
	InsertBulk(ctx context.Context, snapshotID string, flags []*domain.AnomalyFlag) error

	// GetBySnapshot retrieves all flags of a run, ordered by
	// (customer_id, product_id, event_time) ASC.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.AnomalyFlag, error)

	// GetByCustomer retrieves one customer's flags within a run.
	GetByCustomer(ctx context.Context, snapshotID, customerID string) ([]*domain.AnomalyFlag, error)
}
