package commands

import (
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/internal/alert"
	"github.com/mingkaili/ai-trading-signal-engine/internal/indicator"
	"github.com/mingkaili/ai-trading-signal-engine/internal/marketdata"
	"github.com/mingkaili/ai-trading-signal-engine/internal/paper"
	"github.com/mingkaili/ai-trading-signal-engine/internal/pipeline"
	"github.com/mingkaili/ai-trading-signal-engine/internal/portfolio"
	"github.com/mingkaili/ai-trading-signal-engine/internal/scoring"
	"github.com/mingkaili/ai-trading-signal-engine/internal/sector"
	"github.com/mingkaili/ai-trading-signal-engine/internal/signal"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/config"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/database"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/httputil"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/redis"
)

// app holds the wired dependency graph shared by the subcommands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	marketClient *marketdata.Client
	barRepo      *marketdata.Repository
	sectorRepo   *sector.Repository
	scoreService *scoring.Service
	orchestrator *pipeline.Orchestrator
	signalRepo   *signal.Repository
	positionRepo *paper.Repository
	notifier     alert.Notifier
}

// newApp loads config and connects everything. Callers must Close.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "engine")

	httpClient := httputil.New(log, cfg.Provider.Timeout)
	marketClient := marketdata.NewClient(httpClient, log, cfg.Provider)

	barRepo := marketdata.NewRepository(db.Pool)
	indicatorRepo := indicator.NewRepository(db.Pool)
	sectorRepo := sector.NewRepository(db.Pool)
	scoreRepo := scoring.NewRepository(db.Pool)
	signalRepo := signal.NewRepository(db.Pool)
	positionRepo := paper.NewRepository(db.Pool)
	settingsRepo := portfolio.NewRepository(db.Pool)
	alertRepo := alert.NewRepository(db.Pool)
	runRepo := pipeline.NewRunRepository(db.Pool)

	engine := indicator.NewEngine(log)
	builder := indicator.NewBuilder(engine, barRepo, log)
	ranker := sector.NewRanker(log)
	book := paper.NewBook(positionRepo, log)
	notifier := alert.NewLogNotifier(log)

	scorerClient := scoring.NewClient(cfg.Scorer, log)
	scoreLimiter := redis.NewRateLimiter(redisClient, "engine")
	scoreLimit := redis.RateLimitConfig{
		Key:    "scorer",
		Limit:  cfg.Scorer.RateLimit,
		Window: cfg.Scorer.RateWindow,
	}
	scoreService := scoring.NewService(scorerClient, cache, scoreLimiter, scoreLimit, scoreRepo, cfg.Scorer.CacheTTL, log)

	orchestrator := pipeline.NewOrchestrator(
		builder, ranker, book, notifier,
		settingsRepo, barRepo, indicatorRepo, sectorRepo, scoreRepo,
		signalRepo, positionRepo, alertRepo, runRepo,
		cfg.Portfolio.BenchSymbol, log,
	)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		cache:        cache,
		marketClient: marketClient,
		barRepo:      barRepo,
		sectorRepo:   sectorRepo,
		scoreService: scoreService,
		orchestrator: orchestrator,
		signalRepo:   signalRepo,
		positionRepo: positionRepo,
		notifier:     notifier,
	}, nil
}

func (a *app) Close() {
	a.redis.Close()
	a.db.Close()
}
