package alert

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.AlertRepository on PostgreSQL. One
// row per symbol holding the last emitted signal type; the anti-spam
// machine diffs the new verdict against it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new alert state repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLastType returns the last emitted signal type for a symbol. The
// second return value is false when the symbol has never alerted.
func (r *Repository) GetLastType(ctx context.Context, symbol string) (contracts.SignalType, bool, error) {
	query := `
		SELECT last_signal_type
		FROM signals.alert_state
		WHERE symbol = $1
	`

	var t contracts.SignalType
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return t, true, nil
}

// SetLastType records the signal type just emitted for a symbol.
func (r *Repository) SetLastType(ctx context.Context, symbol string, t contracts.SignalType) error {
	query := `
		INSERT INTO signals.alert_state (symbol, last_signal_type, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			last_signal_type = EXCLUDED.last_signal_type,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, symbol, t)
	return err
}
