package indicator

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.IndicatorRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new indicator repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const indicatorColumns = `
	symbol, trade_date, ema21, ema50, ema200, atr_pct,
	rs_vs_spy, rs_slope_10d, volume_z, dollar_vol
`

// GetBySymbolAndDate retrieves the row for (symbol, date), nil if absent.
func (r *Repository) GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) (*contracts.IndicatorRow, error) {
	query := `
		SELECT ` + indicatorColumns + `
		FROM signals.indicator_rows
		WHERE symbol = $1 AND trade_date = $2
	`

	var row contracts.IndicatorRow
	err := r.pool.QueryRow(ctx, query, symbol, date).Scan(
		&row.Symbol, &row.Date, &row.EMA21, &row.EMA50, &row.EMA200, &row.ATRPct,
		&row.RSvsBench, &row.RSSlope10D, &row.VolumeZ, &row.DollarVol,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByDate retrieves all rows for a single date.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) ([]contracts.IndicatorRow, error) {
	query := `
		SELECT ` + indicatorColumns + `
		FROM signals.indicator_rows
		WHERE trade_date = $1
		ORDER BY symbol
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contracts.IndicatorRow
	for rows.Next() {
		var row contracts.IndicatorRow
		if err := rows.Scan(
			&row.Symbol, &row.Date, &row.EMA21, &row.EMA50, &row.EMA200, &row.ATRPct,
			&row.RSvsBench, &row.RSSlope10D, &row.VolumeZ, &row.DollarVol,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpsertBatch writes all rows in a single transaction. Re-running a
// batch for the same inputs overwrites rows in place, so retries are
// safe and readers never observe a partial run.
func (r *Repository) UpsertBatch(ctx context.Context, rows []contracts.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.indicator_rows (` + indicatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			ema21 = EXCLUDED.ema21,
			ema50 = EXCLUDED.ema50,
			ema200 = EXCLUDED.ema200,
			atr_pct = EXCLUDED.atr_pct,
			rs_vs_spy = EXCLUDED.rs_vs_spy,
			rs_slope_10d = EXCLUDED.rs_slope_10d,
			volume_z = EXCLUDED.volume_z,
			dollar_vol = EXCLUDED.dollar_vol
	`

	for _, row := range rows {
		if _, err := tx.Exec(ctx, query,
			row.Symbol, row.Date, row.EMA21, row.EMA50, row.EMA200, row.ATRPct,
			row.RSvsBench, row.RSSlope10D, row.VolumeZ, row.DollarVol,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
