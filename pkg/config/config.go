package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	Provider ProviderConfig
	Scorer   ScorerConfig

	// Portfolio defaults used when no settings row exists yet
	Portfolio PortfolioConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds the daily OHLCV data provider configuration.
type ProviderConfig struct {
	BaseURL        string
	RequestsPerSec float64 // outbound rate limit
	Burst          int
	Timeout        time.Duration
	ProfileBaseURL string // symbol profile page, scraped for name/sector
}

// ScorerConfig holds the AI text-scoring provider configuration.
type ScorerConfig struct {
	Endpoint   string // OpenAI-compatible base URL
	APIKey     string
	Model      string
	Timeout    time.Duration
	CacheTTL   time.Duration // redis front-cache TTL for scores
	RateLimit  int           // scorer calls allowed per window
	RateWindow time.Duration
}

// PortfolioConfig holds account and gating defaults.
type PortfolioConfig struct {
	EquityUSD       float64
	RiskPerTradePct float64
	MaxPositionPct  float64
	TopNSectors     int
	RequireAIScore  bool
	BenchSymbol     string // market regime benchmark, e.g. SPY
}

// Load reads configuration from environment variables. The only
// function in the codebase that calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Provider: ProviderConfig{
			BaseURL:        getEnv("PROVIDER_BASE_URL", "https://stooq.com/q/d/l"),
			RequestsPerSec: getEnvAsFloat("PROVIDER_RPS", 2.0),
			Burst:          getEnvAsInt("PROVIDER_BURST", 4),
			Timeout:        getEnvAsDuration("PROVIDER_TIMEOUT", "30s"),
			ProfileBaseURL: getEnv("PROVIDER_PROFILE_URL", "https://finance.yahoo.com/quote"),
		},

		Scorer: ScorerConfig{
			Endpoint:   getEnv("SCORER_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     getEnv("SCORER_API_KEY", ""),
			Model:      getEnv("SCORER_MODEL", "gpt-4o-mini"),
			Timeout:    getEnvAsDuration("SCORER_TIMEOUT", "60s"),
			CacheTTL:   getEnvAsDuration("SCORER_CACHE_TTL", "168h"),
			RateLimit:  getEnvAsInt("SCORER_RATE_LIMIT", 30),
			RateWindow: getEnvAsDuration("SCORER_RATE_WINDOW", "1m"),
		},

		Portfolio: PortfolioConfig{
			EquityUSD:       getEnvAsFloat("PORTFOLIO_EQUITY_USD", 100_000),
			RiskPerTradePct: getEnvAsFloat("PORTFOLIO_RISK_PCT", 0.01),
			MaxPositionPct:  getEnvAsFloat("PORTFOLIO_MAX_POSITION_PCT", 0.20),
			TopNSectors:     getEnvAsInt("PORTFOLIO_TOP_N_SECTORS", 3),
			RequireAIScore:  getEnvAsBool("PORTFOLIO_REQUIRE_AI_SCORE", true),
			BenchSymbol:     getEnv("PORTFOLIO_BENCH_SYMBOL", "SPY"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration. Failures here are fatal at
// startup; the pipeline never starts with a malformed configuration.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Portfolio.RiskPerTradePct <= 0 || c.Portfolio.RiskPerTradePct > 0.1 {
		return fmt.Errorf("PORTFOLIO_RISK_PCT must be in (0, 0.1]")
	}
	if c.Portfolio.MaxPositionPct <= 0 || c.Portfolio.MaxPositionPct > 1 {
		return fmt.Errorf("PORTFOLIO_MAX_POSITION_PCT must be in (0, 1]")
	}
	if c.Portfolio.TopNSectors < 1 {
		return fmt.Errorf("PORTFOLIO_TOP_N_SECTORS must be >= 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
