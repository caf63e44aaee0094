package scoring

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository implements contracts.ScoreRepository on PostgreSQL.
// Scores are immutable; the primary key is (hash, score_type).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new score repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const scoreColumns = `
	hash, score_type, symbol, growth_phase, conviction, hype_risk,
	evidence, risks, created_at
`

// Get retrieves a score by content hash and type, nil if absent.
func (r *Repository) Get(ctx context.Context, hash, scoreType string) (*contracts.AccelerationScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM signals.acceleration_scores
		WHERE hash = $1 AND score_type = $2
	`

	var s contracts.AccelerationScore
	err := r.pool.QueryRow(ctx, query, hash, scoreType).Scan(
		&s.Hash, &s.ScoreType, &s.Symbol, &s.GrowthPhase, &s.Conviction, &s.HypeRisk,
		&s.Evidence, &s.Risks, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Put inserts a score. A concurrent insert of the same (hash,
// score_type) wins the race silently; both writers computed the same
// immutable value.
func (r *Repository) Put(ctx context.Context, score *contracts.AccelerationScore) error {
	query := `
		INSERT INTO signals.acceleration_scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (hash, score_type) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		score.Hash, score.ScoreType, score.Symbol, score.GrowthPhase, score.Conviction,
		score.HypeRisk, score.Evidence, score.Risks, score.CreatedAt,
	)
	return err
}

// GetLatestForSymbol retrieves the most recent score for a symbol.
func (r *Repository) GetLatestForSymbol(ctx context.Context, symbol, scoreType string) (*contracts.AccelerationScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM signals.acceleration_scores
		WHERE symbol = $1 AND score_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var s contracts.AccelerationScore
	err := r.pool.QueryRow(ctx, query, symbol, scoreType).Scan(
		&s.Hash, &s.ScoreType, &s.Symbol, &s.GrowthPhase, &s.Conviction, &s.HypeRisk,
		&s.Evidence, &s.Risks, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
