package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/decision"
	"github.com/mingkaili/ai-trading-signal-engine/internal/indicator"
	"github.com/mingkaili/ai-trading-signal-engine/internal/paper"
	"github.com/mingkaili/ai-trading-signal-engine/internal/sector"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

func TestRunKey(t *testing.T) {
	k1 := RunKey("daily_run", map[string]string{"date": "2026-02-13", "force": "false"})
	k2 := RunKey("daily_run", map[string]string{"force": "false", "date": "2026-02-13"})
	assert.Equal(t, k1, k2, "payload order must not matter")
	assert.Len(t, k1, 64)

	k3 := RunKey("daily_run", map[string]string{"date": "2026-02-14"})
	assert.NotEqual(t, k1, k3)

	k4 := RunKey("weekly_sectors", map[string]string{"date": "2026-02-13", "force": "false"})
	assert.NotEqual(t, k1, k4, "job name is part of the key")
}

func TestWeekEndOnOrBefore(t *testing.T) {
	tests := []struct {
		day  time.Time
		want time.Time
	}{
		{time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)}, // Friday
		{time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)}, // Monday
		{time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)}, // Saturday
		{time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)}, // Thursday
	}
	for _, tt := range tests {
		got := WeekEndOnOrBefore(tt.day)
		if !got.Equal(tt.want) {
			t.Errorf("WeekEndOnOrBefore(%s) = %s, want %s", tt.day.Weekday(), got, tt.want)
		}
	}
}

func TestBuildSymbolContext(t *testing.T) {
	// Rising closes far above EMA21: no below streak; volume spike on the
	// last bar yields a large trailing z-score.
	bars := makeBars("NVDA", 80, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), func(i int) (float64, int64) {
		vol := int64(100)
		if i == 79 {
			vol = 5000
		}
		return 50 + float64(i), vol
	})

	ctx := BuildSymbolContext(bars)
	assert.Equal(t, 0, ctx.BelowEMA21Streak)
	require.NotEmpty(t, ctx.VolZRecent)
	assert.Greater(t, ctx.VolZRecent[len(ctx.VolZRecent)-1], 1.0, "spike session z-score")

	// Falling closes end up below EMA21 for the trailing sessions
	falling := makeBars("NVDA", 80, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), func(i int) (float64, int64) {
		close := 200.0
		if i >= 70 {
			close = 200 - 10*float64(i-69)
		}
		return close, 100
	})
	ctx = BuildSymbolContext(falling)
	assert.GreaterOrEqual(t, ctx.BelowEMA21Streak, 3)
}

func TestSessionsSince(t *testing.T) {
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	bars := makeBars("NVDA", 10, start.AddDate(0, 0, 9), func(i int) (float64, int64) { return 100, 100 })

	assert.Equal(t, 9, SessionsSince(bars, start))
	assert.Equal(t, 0, SessionsSince(bars, start.AddDate(0, 0, 9)))
}

// makeBars builds count daily bars ending at end, using gen(i) for the
// i-th close and volume.
func makeBars(symbol string, count int, end time.Time, gen func(i int) (float64, int64)) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, count)
	for i := 0; i < count; i++ {
		close, vol := gen(i)
		bars[i] = contracts.PriceBar{
			Symbol: symbol,
			Date:   end.AddDate(0, 0, i-count+1),
			Open:   close,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: vol,
		}
	}
	return bars
}

// --- in-memory fakes -------------------------------------------------

type memBarRepo struct {
	bars map[string][]contracts.PriceBar
}

func (m *memBarRepo) LoadBars(_ context.Context, symbol string, asOf time.Time, maxCount int) ([]contracts.PriceBar, error) {
	var out []contracts.PriceBar
	for _, b := range m.bars[symbol] {
		if !b.Date.After(asOf) {
			out = append(out, b)
		}
	}
	if len(out) > maxCount {
		out = out[len(out)-maxCount:]
	}
	return out, nil
}

func (m *memBarRepo) GetLatest(_ context.Context, symbol string) (*contracts.PriceBar, error) {
	bars := m.bars[symbol]
	if len(bars) == 0 {
		return nil, nil
	}
	b := bars[len(bars)-1]
	return &b, nil
}

func (m *memBarRepo) SaveBatch(_ context.Context, bars []contracts.PriceBar) error {
	for _, b := range bars {
		m.bars[b.Symbol] = append(m.bars[b.Symbol], b)
	}
	return nil
}

type memIndicatorRepo struct {
	rows map[string]contracts.IndicatorRow // symbol|date
}

func indKey(symbol string, date time.Time) string {
	return symbol + "|" + date.Format("2006-01-02")
}

func (m *memIndicatorRepo) GetBySymbolAndDate(_ context.Context, symbol string, date time.Time) (*contracts.IndicatorRow, error) {
	if row, ok := m.rows[indKey(symbol, date)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (m *memIndicatorRepo) GetByDate(_ context.Context, date time.Time) ([]contracts.IndicatorRow, error) {
	var out []contracts.IndicatorRow
	for _, row := range m.rows {
		if sameDate(row.Date, date) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memIndicatorRepo) UpsertBatch(_ context.Context, rows []contracts.IndicatorRow) error {
	for _, row := range rows {
		m.rows[indKey(row.Symbol, row.Date)] = row
	}
	return nil
}

type memSectorRepo struct {
	sectors []contracts.Sector
	weeks   map[string][]contracts.SectorMetric
}

func (m *memSectorRepo) ListEnabled(_ context.Context) ([]contracts.Sector, error) {
	return m.sectors, nil
}

func (m *memSectorRepo) GetWeek(_ context.Context, weekEnd time.Time) ([]contracts.SectorMetric, error) {
	return m.weeks[weekEnd.Format("2006-01-02")], nil
}

func (m *memSectorRepo) ReplaceWeek(_ context.Context, weekEnd time.Time, metrics []contracts.SectorMetric) error {
	m.weeks[weekEnd.Format("2006-01-02")] = metrics
	return nil
}

type memScoreRepo struct {
	scores map[string]*contracts.AccelerationScore // symbol|type
}

func (m *memScoreRepo) Get(_ context.Context, hash, scoreType string) (*contracts.AccelerationScore, error) {
	for _, s := range m.scores {
		if s.Hash == hash && s.ScoreType == scoreType {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memScoreRepo) Put(_ context.Context, score *contracts.AccelerationScore) error {
	m.scores[score.Symbol+"|"+score.ScoreType] = score
	return nil
}

func (m *memScoreRepo) GetLatestForSymbol(_ context.Context, symbol, scoreType string) (*contracts.AccelerationScore, error) {
	return m.scores[symbol+"|"+scoreType], nil
}

type memSignalRepo struct {
	signals []contracts.Signal
}

func (m *memSignalRepo) Insert(_ context.Context, signal *contracts.Signal) error {
	signal.ID = int64(len(m.signals) + 1)
	m.signals = append(m.signals, *signal)
	return nil
}

func (m *memSignalRepo) ListRecent(_ context.Context, limit int) ([]contracts.Signal, error) {
	return m.signals, nil
}

func (m *memSignalRepo) ListBySymbol(_ context.Context, symbol string, limit int) ([]contracts.Signal, error) {
	var out []contracts.Signal
	for _, s := range m.signals {
		if s.Symbol == symbol {
			out = append(out, s)
		}
	}
	return out, nil
}

type memPositionRepo struct {
	nextID int64
	rows   map[int64]*contracts.PaperPosition
}

func (m *memPositionRepo) GetLive(_ context.Context, symbol string) (*contracts.PaperPosition, error) {
	for _, p := range m.rows {
		if p.Symbol == symbol && p.Live() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPositionRepo) ListLive(_ context.Context) ([]contracts.PaperPosition, error) {
	var out []contracts.PaperPosition
	for _, p := range m.rows {
		if p.Live() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPositionRepo) Save(_ context.Context, pos *contracts.PaperPosition) error {
	if pos.ID == 0 {
		m.nextID++
		pos.ID = m.nextID
	}
	cp := *pos
	m.rows[pos.ID] = &cp
	return nil
}

type memSettingsRepo struct {
	settings *contracts.PortfolioSettings
}

func (m *memSettingsRepo) GetActive(_ context.Context) (*contracts.PortfolioSettings, error) {
	return m.settings, nil
}

type memAlertRepo struct {
	last map[string]contracts.SignalType
}

func (m *memAlertRepo) GetLastType(_ context.Context, symbol string) (contracts.SignalType, bool, error) {
	t, ok := m.last[symbol]
	return t, ok, nil
}

func (m *memAlertRepo) SetLastType(_ context.Context, symbol string, t contracts.SignalType) error {
	m.last[symbol] = t
	return nil
}

type memRunRepo struct {
	done map[string]bool
}

func (m *memRunRepo) IsDone(_ context.Context, key string) (bool, error) {
	return m.done[key], nil
}

func (m *memRunRepo) MarkDone(_ context.Context, key string, _ time.Time) error {
	m.done[key] = true
	return nil
}

type memNotifier struct {
	alerts []state.Alert
}

func (m *memNotifier) Notify(_ context.Context, a state.Alert) error {
	m.alerts = append(m.alerts, a)
	return nil
}

// --- end-to-end run --------------------------------------------------

type fixture struct {
	orch      *Orchestrator
	bars      *memBarRepo
	signals   *memSignalRepo
	positions *memPositionRepo
	alerts    *memAlertRepo
	notifier  *memNotifier
	runs      *memRunRepo
}

func newFixture(asOf time.Time) *fixture {
	log := logger.NewNop()

	bars := &memBarRepo{bars: map[string][]contracts.PriceBar{
		// Benchmark: slow riser, keeps the regime RISK_ON
		"SPY": makeBars("SPY", 260, asOf, func(i int) (float64, int64) {
			return 100 + 0.1*float64(i), 1000
		}),
		// Sector ETF: outperforms the benchmark over the week
		"XLK": makeBars("XLK", 260, asOf, func(i int) (float64, int64) {
			return 80 + 0.5*float64(i), 2000
		}),
		// Candidate: fast riser with a volume thrust on the last session
		"NVDA": makeBars("NVDA", 260, asOf, func(i int) (float64, int64) {
			vol := int64(100)
			if i == 259 {
				vol = 5000
			}
			return 50 + float64(i), vol
		}),
	}}

	sectors := &memSectorRepo{
		sectors: []contracts.Sector{{
			ID:          "tech",
			Name:        "Technology",
			ETFSymbol:   "XLK",
			BenchSymbol: "SPY",
			Members:     []string{"NVDA"},
			Enabled:     true,
		}},
		weeks: make(map[string][]contracts.SectorMetric),
	}

	scores := &memScoreRepo{scores: map[string]*contracts.AccelerationScore{
		"NVDA|filing": {
			Hash:        "h1",
			ScoreType:   "filing",
			Symbol:      "NVDA",
			GrowthPhase: contracts.PhaseStrongAcceleration,
			Conviction:  90,
			HypeRisk:    contracts.HypeLow,
			CreatedAt:   asOf,
		},
	}}

	indicators := &memIndicatorRepo{rows: make(map[string]contracts.IndicatorRow)}
	signals := &memSignalRepo{}
	positions := &memPositionRepo{rows: make(map[int64]*contracts.PaperPosition)}
	alertsRepo := &memAlertRepo{last: make(map[string]contracts.SignalType)}
	runs := &memRunRepo{done: make(map[string]bool)}
	notifier := &memNotifier{}

	engine := indicator.NewEngine(log)
	builder := indicator.NewBuilder(engine, bars, log)
	ranker := sector.NewRanker(log)
	book := paper.NewBook(positions, log)

	orch := NewOrchestrator(
		builder, ranker, book, notifier,
		&memSettingsRepo{}, bars, indicators, sectors, scores,
		signals, positions, alertsRepo, runs,
		"SPY", log,
	)

	return &fixture{
		orch:      orch,
		bars:      bars,
		signals:   signals,
		positions: positions,
		alerts:    alertsRepo,
		notifier:  notifier,
		runs:      runs,
	}
}

func TestOrchestrator_DailyRunBuys(t *testing.T) {
	asOf := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC) // Friday
	f := newFixture(asOf)
	ctx := context.Background()

	result, err := f.orch.Run(ctx, RunConfig{AsOf: asOf, RankSectors: true})
	require.NoError(t, err)

	assert.Equal(t, contracts.RegimeRiskOn, result.Regime)
	assert.Equal(t, 1, result.Computed, "NVDA row computed")
	assert.Equal(t, 1, result.SectorsRanked)
	assert.Equal(t, 1, result.Verdicts[contracts.SignalBuy])
	assert.Equal(t, 1, result.Alerts)

	require.Len(t, f.signals.signals, 1)
	sig := f.signals.signals[0]
	assert.Equal(t, "NVDA", sig.Symbol)
	assert.Equal(t, contracts.SignalBuy, sig.Type)
	assert.Equal(t, contracts.RegimeRiskOn, sig.Reason.Regime)
	assert.True(t, sig.Reason.TrendConfirmed)

	pos, err := f.positions.GetLive(ctx, "NVDA")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, contracts.PositionOpen, pos.State)
	assert.Greater(t, pos.Shares, int64(0))
	assert.Greater(t, pos.StopPrice, 0.0)
	assert.Less(t, pos.StopPrice, pos.AvgEntry)

	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, contracts.SignalBuy, f.notifier.alerts[0].Signal)

	assert.Equal(t, contracts.CandidateInPosition, result.Candidates["NVDA"])
}

func TestOrchestrator_RunIsIdempotent(t *testing.T) {
	asOf := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	f := newFixture(asOf)
	ctx := context.Background()

	first, err := f.orch.Run(ctx, RunConfig{AsOf: asOf, RankSectors: true})
	require.NoError(t, err)
	require.False(t, first.AlreadyDone)

	second, err := f.orch.Run(ctx, RunConfig{AsOf: asOf, RankSectors: true})
	require.NoError(t, err)
	assert.True(t, second.AlreadyDone)
	assert.Len(t, f.signals.signals, 1, "no duplicate signals on retry")
}

func TestOrchestrator_UnknownRegimeEmitsNothing(t *testing.T) {
	asOf := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	f := newFixture(asOf)
	// Benchmark too short for EMA200
	f.bars.bars["SPY"] = makeBars("SPY", 30, asOf, func(i int) (float64, int64) {
		return 100, 1000
	})

	result, err := f.orch.Run(context.Background(), RunConfig{AsOf: asOf, RankSectors: true})
	require.NoError(t, err)
	assert.Equal(t, contracts.RegimeUnknown, result.Regime)
	assert.Empty(t, f.signals.signals)
	assert.Empty(t, f.notifier.alerts)
}

func TestOrchestrator_RankSectorsCohort(t *testing.T) {
	asOf := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	f := newFixture(asOf)

	metrics, err := f.orch.RankSectors(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "tech", metrics[0].SectorID)
	assert.Equal(t, 1, metrics[0].Rank)
	assert.Greater(t, metrics[0].RelStrength, 0.0, "XLK outpaces SPY")
}

func TestCandidateFor(t *testing.T) {
	settings := contracts.DefaultPortfolioSettings()
	row := &contracts.IndicatorRow{
		EMA21: 95, EMA50: 90, EMA200: 80,
		RSSlope10D: 0.5, VolumeZ: 1.5, DollarVol: 50_000_000,
	}
	score := &contracts.AccelerationScore{
		GrowthPhase: contracts.PhaseStrongAcceleration,
		Conviction:  90,
		HypeRisk:    contracts.HypeLow,
	}

	base := decision.Input{
		Symbol:     "NVDA",
		Regime:     contracts.RegimeRiskOn,
		SectorRank: 1,
		Close:      100,
		Row:        row,
		VolZRecent: []float64{0.2, 0.4, 0.8, 1.1, 1.5},
		Score:      score,
		Settings:   settings,
	}

	t.Run("all gates ready to buy", func(t *testing.T) {
		assert.Equal(t, contracts.CandidateReadyToBuy, CandidateFor(base, false))
	})

	t.Run("buy filled enters position", func(t *testing.T) {
		assert.Equal(t, contracts.CandidateInPosition, CandidateFor(base, true))
	})

	t.Run("live position short circuits", func(t *testing.T) {
		in := base
		in.Position = &contracts.PaperPosition{State: contracts.PositionOpen, Shares: 10}
		assert.Equal(t, contracts.CandidateInPosition, CandidateFor(in, false))
	})

	t.Run("no trend stops at watch", func(t *testing.T) {
		in := base
		quiet := *row
		quiet.VolumeZ = 0.1
		in.Row = &quiet
		in.VolZRecent = []float64{0.1, 0.1, 0.1, 0.1, 0.1} // no volume thrust
		assert.Equal(t, contracts.CandidateWatch, CandidateFor(in, false))
	})

	t.Run("sector unranked ignores", func(t *testing.T) {
		in := base
		in.SectorRank = 0
		assert.Equal(t, contracts.CandidateIgnore, CandidateFor(in, false))
	})

	t.Run("illiquid ignores", func(t *testing.T) {
		in := base
		thin := *row
		thin.DollarVol = 1_000_000
		in.Row = &thin
		assert.Equal(t, contracts.CandidateIgnore, CandidateFor(in, false))
	})
}
