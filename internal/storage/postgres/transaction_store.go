package postgres

import (
	"context"
	"fmt"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// InsertBulk appends transactions atomically. Returns ErrInvalidInput if
// any record is missing its identity fields.
func (s *TransactionStore) InsertBulk(ctx context.Context, txs []domain.Transaction) (err error) {
	done := observability.TimeDBQuery("postgres", "transactions_insert_bulk")
	defer func() { done(err) }()

	if len(txs) == 0 {
		return nil
	}
	for _, t := range txs {
		if t.CustomerID == "" || t.ProductID == "" || t.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transactions (
			customer_id, product_id, ts, quantity, unit_price, total, is_refund
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, t := range txs {
		_, err := tx.Exec(ctx, query,
			t.CustomerID, t.ProductID, t.Timestamp, t.Quantity, t.UnitPrice, t.Total, t.IsRefund,
		)
		if err != nil {
			return fmt.Errorf("insert transaction in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves the full snapshot ordered by timestamp ASC.
func (s *TransactionStore) GetAll(ctx context.Context) (txs []domain.Transaction, err error) {
	done := observability.TimeDBQuery("postgres", "transactions_get_all")
	defer func() { done(err) }()

	query := `
		SELECT customer_id, product_id, ts, quantity, unit_price, total, is_refund
		FROM transactions
		ORDER BY ts ASC, customer_id ASC, product_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.CustomerID, &t.ProductID, &t.Timestamp, &t.Quantity, &t.UnitPrice, &t.Total, &t.IsRefund,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txs, nil
}
