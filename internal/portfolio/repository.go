package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Repository reads the active portfolio settings row. Callers fall
// back to contracts.DefaultPortfolioSettings when none exists.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ contracts.SettingsRepository = (*Repository)(nil)

// GetActive returns the single active settings row, or nil when the
// table is empty.
func (r *Repository) GetActive(ctx context.Context) (*contracts.PortfolioSettings, error) {
	query := `
		SELECT
			equity_usd, risk_per_trade_pct, max_position_pct,
			stop_policy, stop_fixed_pct, stop_atr_mult,
			top_n_sectors, require_ai_score, strict_hype_gate, exit_on_risk_off
		FROM signals.portfolio_settings
		WHERE active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var s contracts.PortfolioSettings
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.EquityUSD, &s.RiskPerTradePct, &s.MaxPositionPct,
		&s.StopPolicy, &s.StopFixedPct, &s.StopATRMult,
		&s.TopNSectors, &s.RequireAIScore, &s.StrictHypeGate, &s.ExitOnRiskOff,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query portfolio settings: %w", err)
	}

	return &s, nil
}
