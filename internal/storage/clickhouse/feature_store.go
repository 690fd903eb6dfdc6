package clickhouse

import (
	"context"
	"fmt"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/storage"
)

// FeatureVectorStore implements storage.FeatureVectorStore using ClickHouse.
// Feature rows are append-only analytical data; MergeTree does not enforce
// uniqueness, so only intra-batch duplicates are rejected.
type FeatureVectorStore struct {
	conn *Conn
}

// NewFeatureVectorStore creates a new FeatureVectorStore.
func NewFeatureVectorStore(conn *Conn) *FeatureVectorStore {
	return &FeatureVectorStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureVectorStore = (*FeatureVectorStore)(nil)

// InsertBulk stores one run's feature vectors in a single batch.
func (s *FeatureVectorStore) InsertBulk(ctx context.Context, snapshotID string, vectors []*domain.FeatureVector) (err error) {
	done := observability.TimeDBQuery("clickhouse", "feature_vectors_insert_bulk")
	defer func() { done(err) }()

	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(vectors) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		customerID string
		productID  string
	}
	seen := make(map[key]struct{}, len(vectors))
	for _, v := range vectors {
		if v == nil || v.CustomerID == "" || v.ProductID == "" {
			return storage.ErrInvalidInput
		}
		k := key{v.CustomerID, v.ProductID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_vectors (
			snapshot_id, customer_id, product_id,
			gap_mean_days, gap_stddev, gap_cv,
			quantity_mean, quantity_cv, price_mean, price_cv,
			recency_days, tenure_days, order_count, month_spread
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, v := range vectors {
		err = batch.Append(
			snapshotID, v.CustomerID, v.ProductID,
			v.GapMeanDays, v.GapStdDev, v.GapCV,
			v.QuantityMean, v.QuantityCV, v.PriceMean, v.PriceCV,
			v.RecencyDays, v.TenureDays, v.OrderCount, v.MonthSpread,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySnapshot retrieves all vectors of a run, ordered by
// (customer_id, product_id) ASC.
func (s *FeatureVectorStore) GetBySnapshot(ctx context.Context, snapshotID string) (vectors []*domain.FeatureVector, err error) {
	done := observability.TimeDBQuery("clickhouse", "feature_vectors_get_by_snapshot")
	defer func() { done(err) }()

	query := `
		SELECT
			customer_id, product_id,
			gap_mean_days, gap_stddev, gap_cv,
			quantity_mean, quantity_cv, price_mean, price_cv,
			recency_days, tenure_days, order_count, month_spread
		FROM feature_vectors
		WHERE snapshot_id = ?
		ORDER BY customer_id ASC, product_id ASC
	`

	rows, err := s.conn.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query feature vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.FeatureVector
		err := rows.Scan(
			&v.CustomerID, &v.ProductID,
			&v.GapMeanDays, &v.GapStdDev, &v.GapCV,
			&v.QuantityMean, &v.QuantityCV, &v.PriceMean, &v.PriceCV,
			&v.RecencyDays, &v.TenureDays, &v.OrderCount, &v.MonthSpread,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature vector: %w", err)
		}
		vectors = append(vectors, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature vectors: %w", err)
	}

	return vectors, nil
}
