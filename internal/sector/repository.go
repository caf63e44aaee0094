package sector

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.SectorRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sector repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEnabled returns all enabled sectors with their member symbols.
func (r *Repository) ListEnabled(ctx context.Context) ([]contracts.Sector, error) {
	query := `
		SELECT id, name, etf_symbol, bench_symbol, members, enabled
		FROM signals.sectors
		WHERE enabled = TRUE
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sectors []contracts.Sector
	for rows.Next() {
		var s contracts.Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.ETFSymbol, &s.BenchSymbol, &s.Members, &s.Enabled); err != nil {
			return nil, err
		}
		sectors = append(sectors, s)
	}
	return sectors, rows.Err()
}

// GetWeek returns the ranked cohort for a week partition.
func (r *Repository) GetWeek(ctx context.Context, weekEnd time.Time) ([]contracts.SectorMetric, error) {
	query := `
		SELECT sector_id, week_end_date, etf_symbol, bench_symbol,
		       etf_return_5d, rel_strength, dollar_vol_z, breadth, composite, rank
		FROM signals.sector_metrics
		WHERE week_end_date = $1
		ORDER BY rank
	`

	rows, err := r.pool.Query(ctx, query, weekEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []contracts.SectorMetric
	for rows.Next() {
		var m contracts.SectorMetric
		if err := rows.Scan(
			&m.SectorID, &m.WeekEnd, &m.ETFSymbol, &m.BenchSymbol,
			&m.ETFReturn5D, &m.RelStrength, &m.DollarVolZ, &m.Breadth, &m.Composite, &m.Rank,
		); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ReplaceWeek overwrites the full rank cohort for the week inside one
// transaction. Ranks are relative across the whole cohort, so partial
// updates are never valid; delete-then-insert keeps the partition
// consistent for readers.
func (r *Repository) ReplaceWeek(ctx context.Context, weekEnd time.Time, metrics []contracts.SectorMetric) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM signals.sector_metrics WHERE week_end_date = $1`, weekEnd,
	); err != nil {
		return err
	}

	query := `
		INSERT INTO signals.sector_metrics (
			sector_id, week_end_date, etf_symbol, bench_symbol,
			etf_return_5d, rel_strength, dollar_vol_z, breadth, composite, rank
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, m := range metrics {
		if _, err := tx.Exec(ctx, query,
			m.SectorID, m.WeekEnd, m.ETFSymbol, m.BenchSymbol,
			m.ETFReturn5D, m.RelStrength, m.DollarVolZ, m.Breadth, m.Composite, m.Rank,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
