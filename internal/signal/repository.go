package signal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository is the append-only store for emitted signals.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.SignalRepository = (*Repository)(nil)

// Insert appends one signal and backfills its generated ID.
func (r *Repository) Insert(ctx context.Context, s *contracts.Signal) error {
	query := `
		INSERT INTO signals.signals (symbol, signal_type, reason, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query, s.Symbol, s.Type, s.Reason, s.CreatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// ListRecent returns the newest signals across all symbols.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]contracts.Signal, error) {
	query := `
		SELECT id, symbol, signal_type, reason, created_at
		FROM signals.signals
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ListBySymbol returns the newest signals for one symbol.
func (r *Repository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]contracts.Signal, error) {
	query := `
		SELECT id, symbol, signal_type, reason, created_at
		FROM signals.signals
		WHERE symbol = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals for %s: %w", symbol, err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]contracts.Signal, error) {
	signals := make([]contracts.Signal, 0)
	for rows.Next() {
		var s contracts.Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Type, &s.Reason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return signals, nil
}
