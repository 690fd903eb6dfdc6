package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"repurchase-lab/internal/domain"
	"repurchase-lab/internal/observability"
	"repurchase-lab/internal/storage"
)

// PairResultStore implements storage.PairResultStore using PostgreSQL.
// One flat row per (snapshot, customer, product); the trend columns are
// NULL when the pair was too thin for the window comparison.
type PairResultStore struct {
	pool *Pool
}

// NewPairResultStore creates a new PairResultStore.
func NewPairResultStore(pool *Pool) *PairResultStore {
	return &PairResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PairResultStore = (*PairResultStore)(nil)

const pairResultColumns = `
	snapshot_id, customer_id, product_id,
	order_count, first_order_date, last_order_date, gap_mean_days, gap_cv,
	confidence, thin_history,
	f_trend_stability, f_relationship_age, f_quantity_consistency, f_seasonal_consistency,
	f_price_stability, f_overdue_penalty, f_volume_recency,
	next_gap_days, predicted_date, band80_lower, band80_upper, band95_lower, band95_upper,
	next_quantity, method, sample_orders,
	trend_label, trend_historical_gap, trend_recent_gap, trend_relative_change
`

// InsertBulk stores one run's pair results atomically. Fails the whole
// batch on any duplicate (snapshot, customer, product) triple.
func (s *PairResultStore) InsertBulk(ctx context.Context, snapshotID string, results []*domain.PairResult) (err error) {
	done := observability.TimeDBQuery("postgres", "pair_results_insert_bulk")
	defer func() { done(err) }()

	if snapshotID == "" {
		return storage.ErrInvalidInput
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO pair_results (` + pairResultColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21, $22, $23,
			$24, $25, $26,
			$27, $28, $29, $30
		)
	`

	for _, r := range results {
		if r == nil || r.CustomerID == "" || r.ProductID == "" {
			return storage.ErrInvalidInput
		}

		var trendLabel *string
		var trendHist, trendRecent, trendRel *float64
		if r.Trend != nil {
			label := string(r.Trend.Label)
			trendLabel = &label
			trendHist = &r.Trend.HistoricalMeanGap
			trendRecent = &r.Trend.RecentMeanGap
			trendRel = &r.Trend.RelativeChange
		}

		_, err := tx.Exec(ctx, query,
			snapshotID, r.CustomerID, r.ProductID,
			r.Series.OrderCount, r.Series.FirstOrderDate, r.Series.LastOrderDate, r.Series.GapMeanDays, r.Series.GapCV,
			r.Confidence.Value, r.Confidence.ThinHistory,
			r.Confidence.Factors.TrendStability, r.Confidence.Factors.RelationshipAge,
			r.Confidence.Factors.QuantityConsistency, r.Confidence.Factors.SeasonalConsistency,
			r.Confidence.Factors.PriceStability, r.Confidence.Factors.OverduePenalty,
			r.Confidence.Factors.VolumeRecency,
			r.Forecast.NextGapDays, r.Forecast.PredictedDate,
			r.Forecast.Band80.Lower, r.Forecast.Band80.Upper,
			r.Forecast.Band95.Lower, r.Forecast.Band95.Upper,
			r.Forecast.NextQuantity, string(r.Forecast.Method), r.Forecast.SampleOrders,
			trendLabel, trendHist, trendRecent, trendRel,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert pair result in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySnapshot retrieves all pair results of a run, ordered by
// (customer_id, product_id) ASC.
func (s *PairResultStore) GetBySnapshot(ctx context.Context, snapshotID string) (results []*domain.PairResult, err error) {
	done := observability.TimeDBQuery("postgres", "pair_results_get_by_snapshot")
	defer func() { done(err) }()

	query := `
		SELECT ` + pairResultColumns + `
		FROM pair_results
		WHERE snapshot_id = $1
		ORDER BY customer_id ASC, product_id ASC
	`
	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query pair results: %w", err)
	}
	defer rows.Close()

	return scanPairResults(rows)
}

// GetByCustomer retrieves one customer's pair results within a run.
func (s *PairResultStore) GetByCustomer(ctx context.Context, snapshotID, customerID string) (results []*domain.PairResult, err error) {
	done := observability.TimeDBQuery("postgres", "pair_results_get_by_customer")
	defer func() { done(err) }()

	query := `
		SELECT ` + pairResultColumns + `
		FROM pair_results
		WHERE snapshot_id = $1 AND customer_id = $2
		ORDER BY customer_id ASC, product_id ASC
	`
	rows, err := s.pool.Query(ctx, query, snapshotID, customerID)
	if err != nil {
		return nil, fmt.Errorf("query pair results by customer: %w", err)
	}
	defer rows.Close()

	return scanPairResults(rows)
}

func scanPairResults(rows pgx.Rows) ([]*domain.PairResult, error) {
	var results []*domain.PairResult
	for rows.Next() {
		var r domain.PairResult
		var snapshotID, method string
		var trendLabel *string
		var trendHist, trendRecent, trendRel *float64

		err := rows.Scan(
			&snapshotID, &r.CustomerID, &r.ProductID,
			&r.Series.OrderCount, &r.Series.FirstOrderDate, &r.Series.LastOrderDate,
			&r.Series.GapMeanDays, &r.Series.GapCV,
			&r.Confidence.Value, &r.Confidence.ThinHistory,
			&r.Confidence.Factors.TrendStability, &r.Confidence.Factors.RelationshipAge,
			&r.Confidence.Factors.QuantityConsistency, &r.Confidence.Factors.SeasonalConsistency,
			&r.Confidence.Factors.PriceStability, &r.Confidence.Factors.OverduePenalty,
			&r.Confidence.Factors.VolumeRecency,
			&r.Forecast.NextGapDays, &r.Forecast.PredictedDate,
			&r.Forecast.Band80.Lower, &r.Forecast.Band80.Upper,
			&r.Forecast.Band95.Lower, &r.Forecast.Band95.Upper,
			&r.Forecast.NextQuantity, &method, &r.Forecast.SampleOrders,
			&trendLabel, &trendHist, &trendRecent, &trendRel,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pair result: %w", err)
		}

		r.Confidence.CustomerID = r.CustomerID
		r.Confidence.ProductID = r.ProductID
		r.Forecast.CustomerID = r.CustomerID
		r.Forecast.ProductID = r.ProductID
		r.Forecast.Method = domain.ForecastMethod(method)
		if trendLabel != nil {
			r.Trend = &domain.PatternChange{
				CustomerID:        r.CustomerID,
				ProductID:         r.ProductID,
				Label:             domain.TrendLabel(*trendLabel),
				HistoricalMeanGap: *trendHist,
				RecentMeanGap:     *trendRecent,
				RelativeChange:    *trendRel,
			}
		}

		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair results: %w", err)
	}

	return results, nil
}
