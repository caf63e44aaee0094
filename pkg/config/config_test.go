package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/engine")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Database.MaxConnLifetime)

	assert.Equal(t, 2.0, cfg.Provider.RequestsPerSec)
	assert.Equal(t, 4, cfg.Provider.Burst)

	assert.Equal(t, "SPY", cfg.Portfolio.BenchSymbol)
	assert.Equal(t, 100_000.0, cfg.Portfolio.EquityUSD)
	assert.Equal(t, 0.01, cfg.Portfolio.RiskPerTradePct)
	assert.Equal(t, 0.20, cfg.Portfolio.MaxPositionPct)
	assert.Equal(t, 3, cfg.Portfolio.TopNSectors)
	assert.True(t, cfg.Portfolio.RequireAIScore)

	assert.Equal(t, 168*time.Hour, cfg.Scorer.CacheTTL)
	assert.Equal(t, 30, cfg.Scorer.RateLimit)
	assert.Equal(t, time.Minute, cfg.Scorer.RateWindow)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "ENV", "sandbox"},
		{"risk too high", "PORTFOLIO_RISK_PCT", "0.5"},
		{"risk zero", "PORTFOLIO_RISK_PCT", "0"},
		{"position cap too high", "PORTFOLIO_MAX_POSITION_PCT", "1.5"},
		{"top n zero", "PORTFOLIO_TOP_N_SECTORS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost:5432/engine")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/engine")
	t.Setenv("PORT", "9999")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.False(t, cfg.Redis.Enabled)
}
