package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.BarRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new bar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const barColumns = `symbol, trade_date, open, high, low, close, volume`

// LoadBars returns up to maxCount bars for symbol ending at asOf,
// ordered ascending by date. The window is anchored at the most recent
// bar on or before asOf.
func (r *Repository) LoadBars(ctx context.Context, symbol string, asOf time.Time, maxCount int) ([]contracts.PriceBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM (
			SELECT ` + barColumns + `
			FROM signals.price_bars
			WHERE symbol = $1 AND trade_date <= $2
			ORDER BY trade_date DESC
			LIMIT $3
		) recent
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, asOf, maxCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetLatest returns the most recent bar for symbol, nil if none stored.
func (r *Repository) GetLatest(ctx context.Context, symbol string) (*contracts.PriceBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM signals.price_bars
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var b contracts.PriceBar
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// SaveBatch writes all bars in a single transaction. Bars are immutable
// once stored, so conflicts on (symbol, trade_date) are ignored rather
// than overwritten and a re-fetch of an existing range is a no-op.
func (r *Repository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals.price_bars (` + barColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO NOTHING
	`

	for _, b := range bars {
		if _, err := tx.Exec(ctx, query,
			b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
