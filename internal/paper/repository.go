package paper

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.PositionRepository on PostgreSQL.
// At most one live (OPEN or TRIMMED) row exists per symbol; a partial
// unique index enforces it in the schema.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new position repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const positionColumns = `
	id, symbol, state, shares, avg_entry, stop_price, opened_at, closed_at
`

// GetLive returns the live position for a symbol, nil if the symbol
// is flat.
func (r *Repository) GetLive(ctx context.Context, symbol string) (*contracts.PaperPosition, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM signals.paper_positions
		WHERE symbol = $1 AND state IN ('OPEN', 'TRIMMED')
	`

	var p contracts.PaperPosition
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&p.ID, &p.Symbol, &p.State, &p.Shares, &p.AvgEntry, &p.StopPrice, &p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListLive returns all live positions ordered by symbol.
func (r *Repository) ListLive(ctx context.Context) ([]contracts.PaperPosition, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM signals.paper_positions
		WHERE state IN ('OPEN', 'TRIMMED')
		ORDER BY symbol
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []contracts.PaperPosition
	for rows.Next() {
		var p contracts.PaperPosition
		if err := rows.Scan(
			&p.ID, &p.Symbol, &p.State, &p.Shares, &p.AvgEntry, &p.StopPrice, &p.OpenedAt, &p.ClosedAt,
		); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Save persists a position. A zero ID inserts a fresh lifecycle row;
// a known ID updates in place (read-modify-write per fill).
func (r *Repository) Save(ctx context.Context, pos *contracts.PaperPosition) error {
	if pos.ID == 0 {
		query := `
			INSERT INTO signals.paper_positions
				(symbol, state, shares, avg_entry, stop_price, opened_at, closed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		return r.pool.QueryRow(ctx, query,
			pos.Symbol, pos.State, pos.Shares, pos.AvgEntry, pos.StopPrice, pos.OpenedAt, pos.ClosedAt,
		).Scan(&pos.ID)
	}

	query := `
		UPDATE signals.paper_positions
		SET state = $2, shares = $3, avg_entry = $4, stop_price = $5, closed_at = $6
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		pos.ID, pos.State, pos.Shares, pos.AvgEntry, pos.StopPrice, pos.ClosedAt,
	)
	return err
}
