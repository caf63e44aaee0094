package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/alert"
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/decision"
	"github.com/mingkaili/ai-trading-signal-engine/internal/indicator"
	"github.com/mingkaili/ai-trading-signal-engine/internal/paper"
	"github.com/mingkaili/ai-trading-signal-engine/internal/risk"
	"github.com/mingkaili/ai-trading-signal-engine/internal/sector"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// scoreType is the single score family the daily run consumes.
const scoreType = "filing"

// decisionHistoryDepth is the bar window loaded per symbol for the
// decision context: a 60-bar volume window plus trailing sessions.
const decisionHistoryDepth = 70

// Orchestrator sequences one as-of-date run: settings, indicators,
// sector ranks, then per-symbol decisions with their state
// transitions. Each stage completes (and batch-writes) before the next
// starts; a stage failure abandons the run with no partial commit.
type Orchestrator struct {
	builder  *indicator.Builder
	ranker   *sector.Ranker
	book     *paper.Book
	notifier alert.Notifier

	settingsRepo  contracts.SettingsRepository
	barRepo       contracts.BarRepository
	indicatorRepo contracts.IndicatorRepository
	sectorRepo    contracts.SectorRepository
	scoreRepo     contracts.ScoreRepository
	signalRepo    contracts.SignalRepository
	positionRepo  contracts.PositionRepository
	alertRepo     contracts.AlertRepository
	runRepo       contracts.RunRepository

	benchSymbol string
	logger      *logger.Logger
}

// NewOrchestrator creates a new run orchestrator.
func NewOrchestrator(
	builder *indicator.Builder,
	ranker *sector.Ranker,
	book *paper.Book,
	notifier alert.Notifier,
	settingsRepo contracts.SettingsRepository,
	barRepo contracts.BarRepository,
	indicatorRepo contracts.IndicatorRepository,
	sectorRepo contracts.SectorRepository,
	scoreRepo contracts.ScoreRepository,
	signalRepo contracts.SignalRepository,
	positionRepo contracts.PositionRepository,
	alertRepo contracts.AlertRepository,
	runRepo contracts.RunRepository,
	benchSymbol string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		builder:       builder,
		ranker:        ranker,
		book:          book,
		notifier:      notifier,
		settingsRepo:  settingsRepo,
		barRepo:       barRepo,
		indicatorRepo: indicatorRepo,
		sectorRepo:    sectorRepo,
		scoreRepo:     scoreRepo,
		signalRepo:    signalRepo,
		positionRepo:  positionRepo,
		alertRepo:     alertRepo,
		runRepo:       runRepo,
		benchSymbol:   benchSymbol,
		logger:        log,
	}
}

// RunConfig holds the parameters of one pipeline run.
type RunConfig struct {
	AsOf        time.Time
	RankSectors bool // recompute this week's sector cohort
	Force       bool // ignore a recorded completion for the same key
}

// RunResult is the per-stage accounting for a completed run.
type RunResult struct {
	Key           string
	AsOf          time.Time
	AlreadyDone   bool
	Regime        contracts.MarketRegime
	Computed      int
	Skipped       int
	SectorsRanked int
	Verdicts      map[contracts.SignalType]int
	Candidates    map[string]contracts.CandidateState
	RiskRejected  int
	Alerts        int
	Duration      time.Duration
}

// Run executes the full daily pipeline for one as-of date. Repeated
// invocations with the same key are no-ops; every write underneath is
// an upsert on its natural key, so even a mid-run retry is safe.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	start := time.Now()
	asOf := dateOnly(cfg.AsOf)

	result := &RunResult{
		Key:        RunKey("daily_run", map[string]string{"date": asOf.Format("2006-01-02")}),
		AsOf:       asOf,
		Verdicts:   make(map[contracts.SignalType]int),
		Candidates: make(map[string]contracts.CandidateState),
	}

	if !cfg.Force {
		done, err := o.runRepo.IsDone(ctx, result.Key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if done {
			o.logger.WithField("key", result.Key).Info("Run already completed, skipping")
			result.AlreadyDone = true
			return result, nil
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"date":         asOf.Format("2006-01-02"),
		"rank_sectors": cfg.RankSectors,
	}).Info("Starting pipeline run")

	settings, err := o.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	result.Regime = o.classifyRegime(ctx, asOf)

	rows, skipped, err := o.runIndicators(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("indicator stage: %w", err)
	}
	result.Computed = len(rows)
	result.Skipped = skipped

	metrics, err := o.sectorMetrics(ctx, asOf, cfg.RankSectors)
	if err != nil {
		return nil, fmt.Errorf("sector stage: %w", err)
	}
	result.SectorsRanked = len(metrics)

	if err := o.runDecisions(ctx, asOf, settings, result.Regime, rows, metrics, result); err != nil {
		return nil, fmt.Errorf("decision stage: %w", err)
	}

	if err := o.runRepo.MarkDone(ctx, result.Key, time.Now()); err != nil {
		return nil, fmt.Errorf("mark run done: %w", err)
	}

	result.Duration = time.Since(start)
	o.logger.WithFields(map[string]interface{}{
		"date":     asOf.Format("2006-01-02"),
		"regime":   result.Regime,
		"computed": result.Computed,
		"skipped":  result.Skipped,
		"verdicts": result.Verdicts,
		"duration": result.Duration,
	}).Info("Pipeline run completed")

	return result, nil
}

// loadSettings returns the active settings row, falling back to
// defaults when none exists yet.
func (o *Orchestrator) loadSettings(ctx context.Context) (contracts.PortfolioSettings, error) {
	s, err := o.settingsRepo.GetActive(ctx)
	if err != nil {
		return contracts.PortfolioSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if s == nil {
		o.logger.Warn("No active settings row, using defaults")
		return contracts.DefaultPortfolioSettings(), nil
	}
	return *s, nil
}

// classifyRegime derives the market regime from the benchmark's trend.
// A benchmark without enough history yields UNKNOWN, which suppresses
// every verdict downstream.
func (o *Orchestrator) classifyRegime(ctx context.Context, asOf time.Time) contracts.MarketRegime {
	bars, err := o.barRepo.LoadBars(ctx, o.benchSymbol, asOf, 260)
	if err != nil || len(bars) == 0 {
		return contracts.RegimeUnknown
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ema50, err50 := indicator.EMA(closes, 50)
	ema200, err200 := indicator.EMA(closes, 200)
	if err50 != nil || err200 != nil {
		o.logger.WithField("symbol", o.benchSymbol).Warn("Benchmark too short for regime, treating as UNKNOWN")
		return contracts.RegimeUnknown
	}

	return decision.Classify(closes[len(closes)-1], ema50, ema200)
}

// runIndicators computes and persists the indicator batch for the
// sector universe.
func (o *Orchestrator) runIndicators(ctx context.Context, asOf time.Time) (map[string]contracts.IndicatorRow, int, error) {
	symbols, _, err := o.universe(ctx)
	if err != nil {
		return nil, 0, err
	}

	build, err := o.builder.Build(ctx, symbols, o.benchSymbol, asOf)
	if err != nil {
		return nil, 0, err
	}

	if err := o.indicatorRepo.UpsertBatch(ctx, build.Rows); err != nil {
		return nil, 0, fmt.Errorf("upsert indicator rows: %w", err)
	}

	bySymbol := make(map[string]contracts.IndicatorRow, len(build.Rows))
	for _, row := range build.Rows {
		bySymbol[row.Symbol] = row
	}
	return bySymbol, len(build.Skipped), nil
}

// sectorMetrics returns this week's ranked cohort, recomputing it when
// requested and reading the stored week otherwise.
func (o *Orchestrator) sectorMetrics(ctx context.Context, asOf time.Time, recompute bool) ([]contracts.SectorMetric, error) {
	if recompute {
		return o.RankSectors(ctx, asOf)
	}
	return o.sectorRepo.GetWeek(ctx, WeekEndOnOrBefore(asOf))
}

// runDecisions evaluates every universe symbol and applies the
// resulting signals, fills, and alerts.
func (o *Orchestrator) runDecisions(
	ctx context.Context,
	asOf time.Time,
	settings contracts.PortfolioSettings,
	regime contracts.MarketRegime,
	rows map[string]contracts.IndicatorRow,
	metrics []contracts.SectorMetric,
	result *RunResult,
) error {
	symbols, sectorOf, err := o.universe(ctx)
	if err != nil {
		return err
	}

	rankBySector := make(map[string]int, len(metrics))
	for _, m := range metrics {
		rankBySector[m.SectorID] = m.Rank
	}

	for _, symbol := range symbols {
		in, ok, err := o.assembleInput(ctx, symbol, asOf, settings, regime, rows, sectorOf, rankBySector)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		verdict := decision.Evaluate(in)
		buyFilled := false
		if verdict.OK {
			buysBefore := result.Verdicts[contracts.SignalBuy]
			if err := o.applyVerdict(ctx, asOf, in, verdict, settings, result); err != nil {
				return err
			}
			buyFilled = verdict.Type == contracts.SignalBuy &&
				result.Verdicts[contracts.SignalBuy] > buysBefore
		}

		result.Candidates[symbol] = CandidateFor(in, buyFilled)
	}

	return nil
}

// assembleInput builds the decision context for one symbol. ok=false
// skips the symbol without error (no bars, or history not current).
func (o *Orchestrator) assembleInput(
	ctx context.Context,
	symbol string,
	asOf time.Time,
	settings contracts.PortfolioSettings,
	regime contracts.MarketRegime,
	rows map[string]contracts.IndicatorRow,
	sectorOf map[string]string,
	rankBySector map[string]int,
) (decision.Input, bool, error) {
	bars, err := o.barRepo.LoadBars(ctx, symbol, asOf, decisionHistoryDepth)
	if err != nil {
		return decision.Input{}, false, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 || !sameDate(bars[len(bars)-1].Date, asOf) {
		return decision.Input{}, false, nil
	}
	latest := bars[len(bars)-1]

	symCtx := BuildSymbolContext(bars)

	pos, err := o.positionRepo.GetLive(ctx, symbol)
	if err != nil {
		return decision.Input{}, false, fmt.Errorf("load position for %s: %w", symbol, err)
	}
	sessions := 0
	if pos.Live() {
		sessions = SessionsSince(bars, pos.OpenedAt)
	}

	score, err := o.scoreRepo.GetLatestForSymbol(ctx, symbol, scoreType)
	if err != nil {
		return decision.Input{}, false, fmt.Errorf("load score for %s: %w", symbol, err)
	}

	in := decision.Input{
		Symbol:             symbol,
		Regime:             regime,
		SectorID:           sectorOf[symbol],
		Close:              latest.Close,
		VolZRecent:         symCtx.VolZRecent,
		BelowEMA21Streak:   symCtx.BelowEMA21Streak,
		Score:              score,
		Position:           pos,
		SessionsSinceEntry: sessions,
		Settings:           settings,
	}
	if row, found := rows[symbol]; found {
		in.Row = &row
	}
	if rank, found := rankBySector[in.SectorID]; found {
		in.SectorRank = rank
	}
	if score != nil {
		// A score counts as fresh when produced since the prior session.
		in.ScoreIsFresh = score.CreatedAt.After(asOf.AddDate(0, 0, -1))
	}

	return in, true, nil
}

// applyVerdict turns a verdict into its fill, signal, and alert. BUY
// and ADD pass through risk sizing first; a rejection emits nothing.
func (o *Orchestrator) applyVerdict(
	ctx context.Context,
	asOf time.Time,
	in decision.Input,
	v decision.Verdict,
	settings contracts.PortfolioSettings,
	result *RunResult,
) error {
	switch v.Type {
	case contracts.SignalBuy:
		stop, err := risk.StopFor(in.Close, in.Row, settings)
		if err != nil {
			result.RiskRejected++
			return nil
		}
		sz, err := risk.Size(in.Close, stop, settings)
		if err != nil {
			if errors.Is(err, contracts.ErrRiskRejected) {
				result.RiskRejected++
				return nil
			}
			return err
		}
		if _, err := o.book.Apply(ctx, state.Fill{
			Symbol: in.Symbol, Kind: state.FillBuy,
			Price: in.Close, Shares: sz.Shares, Stop: stop, At: asOf,
		}); err != nil {
			return fmt.Errorf("BUY fill for %s: %w", in.Symbol, err)
		}

	case contracts.SignalAdd:
		shares, ok := o.addShares(in, settings)
		if !ok {
			result.RiskRejected++
			return nil
		}
		if _, err := o.book.Apply(ctx, state.Fill{
			Symbol: in.Symbol, Kind: state.FillAdd,
			Price: in.Close, Shares: shares, At: asOf,
		}); err != nil {
			return fmt.Errorf("ADD fill for %s: %w", in.Symbol, err)
		}

	case contracts.SignalTrim:
		if _, err := o.book.Apply(ctx, state.Fill{
			Symbol: in.Symbol, Kind: state.FillTrim, Price: in.Close, At: asOf,
		}); err != nil {
			return fmt.Errorf("TRIM fill for %s: %w", in.Symbol, err)
		}

	case contracts.SignalSell:
		if _, err := o.book.Apply(ctx, state.Fill{
			Symbol: in.Symbol, Kind: state.FillSell, Price: in.Close, At: asOf,
		}); err != nil {
			return fmt.Errorf("SELL fill for %s: %w", in.Symbol, err)
		}
	}

	signal := &contracts.Signal{
		Symbol:    in.Symbol,
		Type:      v.Type,
		Reason:    v.Reason,
		CreatedAt: time.Now(),
	}
	if err := o.signalRepo.Insert(ctx, signal); err != nil {
		return fmt.Errorf("insert signal for %s: %w", in.Symbol, err)
	}
	result.Verdicts[v.Type]++

	return o.emitAlert(ctx, in.Symbol, v.Type, in.Close, result)
}

// addShares sizes an ADD fill: risk-based quantity clipped to the room
// left under the position cap.
func (o *Orchestrator) addShares(in decision.Input, settings contracts.PortfolioSettings) (int64, bool) {
	stop, err := risk.StopFor(in.Close, in.Row, settings)
	if err != nil {
		return 0, false
	}
	sz, err := risk.Size(in.Close, stop, settings)
	if err != nil {
		return 0, false
	}

	capUSD := settings.EquityUSD * settings.MaxPositionPct
	room := int64(capUSD/in.Close) - in.Position.Shares
	shares := sz.Shares
	if shares > room {
		shares = room
	}
	if shares < 1 {
		return 0, false
	}
	return shares, true
}

// emitAlert runs the anti-spam diff and notifies when it passes. The
// last emitted type is recorded for every signal, alerting or not.
func (o *Orchestrator) emitAlert(ctx context.Context, symbol string, t contracts.SignalType, close float64, result *RunResult) error {
	prev, hadPrev, err := o.alertRepo.GetLastType(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load alert state for %s: %w", symbol, err)
	}

	if state.ShouldAlert(prev, hadPrev, t) {
		a := state.Alert{
			Kind:    state.AlertSignal,
			Symbol:  symbol,
			Signal:  t,
			Message: alert.FormatSignalMessage(symbol, t, close),
		}
		if err := o.notifier.Notify(ctx, a); err != nil {
			o.logger.WithError(err).WithField("symbol", symbol).Warn("Alert delivery failed")
		} else {
			result.Alerts++
		}
	}

	return o.alertRepo.SetLastType(ctx, symbol, t)
}

// universe returns the sorted union of all enabled sector members and
// a symbol-to-sector mapping.
func (o *Orchestrator) universe(ctx context.Context) ([]string, map[string]string, error) {
	sectors, err := o.sectorRepo.ListEnabled(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list sectors: %w", err)
	}

	sectorOf := make(map[string]string)
	for _, s := range sectors {
		for _, m := range s.Members {
			if _, seen := sectorOf[m]; !seen {
				sectorOf[m] = s.ID
			}
		}
	}

	symbols := make([]string, 0, len(sectorOf))
	for s := range sectorOf {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, sectorOf, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
