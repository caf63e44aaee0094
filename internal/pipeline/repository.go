package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// RunRepository records completed runs by idempotency key.
type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

var _ contracts.RunRepository = (*RunRepository)(nil)

func (r *RunRepository) IsDone(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signals.pipeline_runs WHERE run_key = $1)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query run key: %w", err)
	}
	return exists, nil
}

// MarkDone is idempotent; a concurrent duplicate insert is a no-op.
func (r *RunRepository) MarkDone(ctx context.Context, key string, finishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO signals.pipeline_runs (run_key, finished_at)
		VALUES ($1, $2)
		ON CONFLICT (run_key) DO NOTHING
	`, key, finishedAt)
	if err != nil {
		return fmt.Errorf("mark run done: %w", err)
	}
	return nil
}
