package contracts

import (
	"context"
	"time"
)

// BarRepository manages daily price bars.
type BarRepository interface {
	// LoadBars returns up to maxCount bars for symbol ending at asOf,
	// ordered ascending by date.
	LoadBars(ctx context.Context, symbol string, asOf time.Time, maxCount int) ([]PriceBar, error)
	GetLatest(ctx context.Context, symbol string) (*PriceBar, error)
	SaveBatch(ctx context.Context, bars []PriceBar) error
}

// IndicatorRepository manages derived indicator rows. Writes are
// upserts keyed by (symbol, date) and batched in one transaction per run.
type IndicatorRepository interface {
	GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) (*IndicatorRow, error)
	GetByDate(ctx context.Context, date time.Time) ([]IndicatorRow, error)
	UpsertBatch(ctx context.Context, rows []IndicatorRow) error
}

// SectorRepository manages sector configuration and weekly metrics.
// ReplaceWeek overwrites the full rank cohort for a week partition.
type SectorRepository interface {
	ListEnabled(ctx context.Context) ([]Sector, error)
	GetWeek(ctx context.Context, weekEnd time.Time) ([]SectorMetric, error)
	ReplaceWeek(ctx context.Context, weekEnd time.Time, metrics []SectorMetric) error
}

// ScoreRepository is the content-addressed store for AI scores.
type ScoreRepository interface {
	Get(ctx context.Context, hash, scoreType string) (*AccelerationScore, error)
	Put(ctx context.Context, score *AccelerationScore) error
	GetLatestForSymbol(ctx context.Context, symbol, scoreType string) (*AccelerationScore, error)
}

// SignalRepository is the append-only signal log.
type SignalRepository interface {
	Insert(ctx context.Context, signal *Signal) error
	ListRecent(ctx context.Context, limit int) ([]Signal, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]Signal, error)
}

// PositionRepository manages paper positions via read-modify-write.
type PositionRepository interface {
	GetLive(ctx context.Context, symbol string) (*PaperPosition, error)
	ListLive(ctx context.Context) ([]PaperPosition, error)
	Save(ctx context.Context, pos *PaperPosition) error
}

// SettingsRepository reads the single active portfolio settings row.
type SettingsRepository interface {
	GetActive(ctx context.Context) (*PortfolioSettings, error)
}

// AlertRepository tracks the last emitted signal type per symbol so the
// anti-spam machine can diff verdicts across runs.
type AlertRepository interface {
	GetLastType(ctx context.Context, symbol string) (SignalType, bool, error)
	SetLastType(ctx context.Context, symbol string, t SignalType) error
}

// RunRepository records completed job invocations by idempotency key.
type RunRepository interface {
	IsDone(ctx context.Context, key string) (bool, error)
	MarkDone(ctx context.Context, key string, finishedAt time.Time) error
}
