package clickhouse

import (
	"context"
	"fmt"
	"time"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/storage"
)

// AnomalyFlagStore implements storage.AnomalyFlagStore using ClickHouse.
type AnomalyFlagStore struct {
	conn *Conn
}

// NewAnomalyFlagStore creates a new AnomalyFlagStore.
func NewAnomalyFlagStore(conn *Conn) *AnomalyFlagStore {
	return &AnomalyFlagStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnomalyFlagStore = (*AnomalyFlagStore)(nil)

// InsertBulk stores one run's anomaly flags in a single batch.
func (s *AnomalyFlagStore) InsertBulk(ctx context.Context, snapshotID string, flags []*domain.AnomalyFlag) (err error) {
	done := observability.TimeDBQuery("clickhouse", "anomaly_flags_insert_bulk")
	defer func() { done(err) }()

	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(flags) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		customerID string
		productID  string
		eventMs    int64
	}
	seen := make(map[key]struct{}, len(flags))
	for _, f := range flags {
		if f == nil || f.CustomerID == "" || f.ProductID == "" || f.EventTime.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{f.CustomerID, f.ProductID, f.EventTime.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO anomaly_flags (
			snapshot_id, customer_id, product_id, event_time,
			score, severity, reasons
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range flags {
		reasons := make([]string, len(f.Reasons))
		for i, r := range f.Reasons {
			reasons[i] = string(r)
		}
		err = batch.Append(
			snapshotID, f.CustomerID, f.ProductID, f.EventTime,
			f.Score, string(f.Severity), reasons,
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

// GetBySnapshot retrieves all flags of a run, ordered by
// (customer_id, product_id, event_time) ASC.
func (s *AnomalyFlagStore) GetBySnapshot(ctx context.Context, snapshotID string) (flags []*domain.AnomalyFlag, err error) {
	done := observability.TimeDBQuery("clickhouse", "anomaly_flags_get_by_snapshot")
	defer func() { done(err) }()

	query := anomalySelect + `
		WHERE snapshot_id = ?
		ORDER BY customer_id ASC, product_id ASC, event_time ASC
	`
	rows, err := s.conn.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query anomaly flags: %w", err)
	}
	defer rows.Close()

	return scanAnomalyFlags(rows)
}

// GetByCustomer retrieves one customer's flags within a run.
func (s *AnomalyFlagStore) GetByCustomer(ctx context.Context, snapshotID, customerID string) (flags []*domain.AnomalyFlag, err error) {
	done := observability.TimeDBQuery("clickhouse", "anomaly_flags_get_by_customer")
	defer func() { done(err) }()

	query := anomalySelect + `
		WHERE snapshot_id = ? AND customer_id = ?
		ORDER BY customer_id ASC, product_id ASC, event_time ASC
	`
	rows, err := s.conn.Query(ctx, query, snapshotID, customerID)
	if err != nil {
		return nil, fmt.Errorf("query anomaly flags by customer: %w", err)
	}
	defer rows.Close()

	return scanAnomalyFlags(rows)
}

const anomalySelect = `
	SELECT customer_id, product_id, event_time, score, severity, reasons
	FROM anomaly_flags
`

type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanAnomalyFlags scans multiple rows.
func scanAnomalyFlags(rows chRows) ([]*domain.AnomalyFlag, error) {
	var flags []*domain.AnomalyFlag
	for rows.Next() {
		var f domain.AnomalyFlag
		var eventTime time.Time
		var severity string
		var reasons []string

		err := rows.Scan(&f.CustomerID, &f.ProductID, &eventTime, &f.Score, &severity, &reasons)
		if err != nil {
			return nil, fmt.Errorf("scan anomaly flag: %w", err)
		}

		f.EventTime = eventTime.UTC()
		f.Severity = domain.Severity(severity)
		f.Reasons = make([]domain.ReasonCode, len(reasons))
		for i, r := range reasons {
			f.Reasons[i] = domain.ReasonCode(r)
		}

		flags = append(flags, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomaly flags: %w", err)
	}

	return flags, nil
}
