package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/marketdata"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// DailyBarsJob fetches the latest daily bars for every symbol in the
// configured universe and stores them. Bars are immutable, so
// refetching an already-stored window is a no-op.
type DailyBarsJob struct {
	client     *marketdata.Client
	barRepo    contracts.BarRepository
	sectorRepo contracts.SectorRepository
	logger     *logger.Logger

	lookbackDays int
}

func NewDailyBarsJob(
	client *marketdata.Client,
	barRepo contracts.BarRepository,
	sectorRepo contracts.SectorRepository,
	log *logger.Logger,
) *DailyBarsJob {
	return &DailyBarsJob{
		client:       client,
		barRepo:      barRepo,
		sectorRepo:   sectorRepo,
		logger:       log,
		lookbackDays: 7,
	}
}

func (j *DailyBarsJob) Name() string {
	return "daily_bars"
}

// Schedule runs after the US close, weekdays at 16:30.
func (j *DailyBarsJob) Schedule() string {
	return "0 30 16 * * 1-5"
}

func (j *DailyBarsJob) Run(ctx context.Context) error {
	symbols, err := j.universeSymbols(ctx)
	if err != nil {
		return err
	}

	to := time.Now()
	from := to.AddDate(0, 0, -j.lookbackDays)

	fetched := 0
	failed := 0
	for _, symbol := range symbols {
		bars, err := j.client.FetchDailyBars(ctx, symbol, from, to)
		if err != nil {
			failed++
			j.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			}).Warn("Bar fetch failed")
			continue
		}
		if len(bars) == 0 {
			continue
		}
		if err := j.barRepo.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", symbol, err)
		}
		fetched += len(bars)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"bars":    fetched,
		"failed":  failed,
	}).Info("Daily bar collection completed")

	if failed == len(symbols) && len(symbols) > 0 {
		return fmt.Errorf("all %d symbol fetches failed", failed)
	}
	return nil
}

// universeSymbols collects every symbol the pipeline reads: sector
// members, sector ETFs and their benchmarks.
func (j *DailyBarsJob) universeSymbols(ctx context.Context) ([]string, error) {
	sectors, err := j.sectorRepo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}

	seen := make(map[string]struct{})
	for _, s := range sectors {
		seen[s.ETFSymbol] = struct{}{}
		seen[s.BenchSymbol] = struct{}{}
		for _, m := range s.Members {
			seen[m] = struct{}{}
		}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
