package indicator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// historyDepth is how many bars are loaded per symbol. EMA200 needs 200
// closes; a little slack keeps the smoothing stable after gaps.
const historyDepth = 260

// defaultWorkers bounds the per-symbol computation fan-out.
const defaultWorkers = 8

// Builder computes indicator rows for a whole symbol cohort at an as-of
// date. Per-symbol computation is independent and runs in parallel;
// results are buffered and handed back for a single batch write.
type Builder struct {
	engine  *Engine
	barRepo contracts.BarRepository
	workers int
	logger  *logger.Logger
}

// NewBuilder creates a new indicator builder.
func NewBuilder(engine *Engine, barRepo contracts.BarRepository, log *logger.Logger) *Builder {
	return &Builder{
		engine:  engine,
		barRepo: barRepo,
		workers: defaultWorkers,
		logger:  log,
	}
}

// BuildResult holds the computed rows plus skip accounting for the run.
type BuildResult struct {
	Rows    []contracts.IndicatorRow
	Skipped map[string]string // symbol -> skip reason
}

// Build loads history and computes one indicator row per symbol. Skips
// (insufficient history, stale data, missing benchmark) are counted,
// not errors; a hard repository failure aborts the batch.
func (b *Builder) Build(ctx context.Context, symbols []string, benchSymbol string, asOf time.Time) (*BuildResult, error) {
	benchCloses, err := b.loadBenchmarkCloses(ctx, benchSymbol, asOf)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		symbol string
		row    *contracts.IndicatorRow
		err    error
	}

	jobs := make(chan string)
	results := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				row, err := b.buildOne(ctx, symbol, benchCloses, asOf)
				results <- outcome{symbol: symbol, row: row, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range symbols {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	result := &BuildResult{
		Skipped: make(map[string]string),
	}
	for out := range results {
		switch {
		case out.err == nil:
			result.Rows = append(result.Rows, *out.row)
		case contracts.IsSkip(out.err):
			result.Skipped[out.symbol] = out.err.Error()
			b.logger.WithFields(map[string]interface{}{
				"symbol": out.symbol,
				"reason": out.err.Error(),
			}).Debug("Indicator row skipped")
		default:
			return nil, out.err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Deterministic output order regardless of worker scheduling
	sort.Slice(result.Rows, func(i, j int) bool {
		return result.Rows[i].Symbol < result.Rows[j].Symbol
	})

	b.logger.WithFields(map[string]interface{}{
		"date":     asOf.Format("2006-01-02"),
		"computed": len(result.Rows),
		"skipped":  len(result.Skipped),
	}).Info("Indicator batch completed")

	return result, nil
}

// buildOne computes the row for a single symbol.
func (b *Builder) buildOne(ctx context.Context, symbol string, benchCloses map[time.Time]float64, asOf time.Time) (*contracts.IndicatorRow, error) {
	bars, err := b.barRepo.LoadBars(ctx, symbol, asOf, historyDepth)
	if err != nil {
		return nil, err
	}
	return b.engine.Compute(symbol, bars, benchCloses, asOf)
}

// loadBenchmarkCloses builds the date-keyed benchmark close series used
// by every symbol's RS computation. An empty benchmark history is a
// skip for the whole RS family, not a run failure.
func (b *Builder) loadBenchmarkCloses(ctx context.Context, benchSymbol string, asOf time.Time) (map[time.Time]float64, error) {
	bars, err := b.barRepo.LoadBars(ctx, benchSymbol, asOf, historyDepth)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientHistory) {
			return map[time.Time]float64{}, nil
		}
		return nil, err
	}

	closes := make(map[time.Time]float64, len(bars))
	for _, bar := range bars {
		closes[dateKey(bar.Date)] = bar.Close
	}
	return closes, nil
}
