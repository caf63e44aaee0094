package contracts

import "time"

// PriceBar is a single daily OHLCV bar. Immutable once stored,
// uniquely keyed by (symbol, date).
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DollarVolume returns close * volume for the bar.
func (b PriceBar) DollarVolume() float64 {
	return b.Close * float64(b.Volume)
}

// IndicatorRow holds all derived technical features for one (symbol, date).
// Rows are recomputable and upserted whole; a row only exists when every
// feature could be computed for that date.
type IndicatorRow struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	EMA21      float64   `json:"ema21"`
	EMA50      float64   `json:"ema50"`
	EMA200     float64   `json:"ema200"`
	ATRPct     float64   `json:"atr_pct"`
	RSvsBench  float64   `json:"rs_vs_spy"`
	RSSlope10D float64   `json:"rs_slope_10d"`
	VolumeZ    float64   `json:"volume_z"`
	DollarVol  float64   `json:"dollar_vol"`
}

// Sector is a configured sector universe entry: the tracking ETF, the
// benchmark it is measured against, and the member symbols.
type Sector struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ETFSymbol   string   `json:"etf_symbol"`
	BenchSymbol string   `json:"bench_symbol"`
	Members     []string `json:"members"`
	Enabled     bool     `json:"enabled"`
}

// SectorMetric is the weekly composite flow score for one sector.
// Rank is relative within a single (week_end) cohort and is only
// meaningful after the whole cohort has been scored.
type SectorMetric struct {
	SectorID    string    `json:"sector_id"`
	WeekEnd     time.Time `json:"week_end_date"`
	ETFSymbol   string    `json:"etf_symbol"`
	BenchSymbol string    `json:"bench_symbol"`
	ETFReturn5D float64   `json:"etf_return_5d"`
	RelStrength float64   `json:"rel_strength"`
	DollarVolZ  float64   `json:"dollar_vol_z"`
	Breadth     float64   `json:"breadth"`
	Composite   float64   `json:"composite"`
	Rank        int       `json:"rank"`
}

// GrowthPhase classifies revenue/earnings acceleration from the AI scorer.
type GrowthPhase string

const (
	PhaseDecelerating       GrowthPhase = "decelerating"
	PhaseStable             GrowthPhase = "stable"
	PhaseEarlyAcceleration  GrowthPhase = "early_acceleration"
	PhaseStrongAcceleration GrowthPhase = "strong_acceleration"
)

// Valid reports whether the phase is one of the known enum values.
func (p GrowthPhase) Valid() bool {
	switch p {
	case PhaseDecelerating, PhaseStable, PhaseEarlyAcceleration, PhaseStrongAcceleration:
		return true
	}
	return false
}

// HypeRisk is the scorer's assessment of narrative-driven overextension.
type HypeRisk string

const (
	HypeLow    HypeRisk = "low"
	HypeMedium HypeRisk = "medium"
	HypeHigh   HypeRisk = "high"
)

// Valid reports whether the hype risk is a known enum value.
func (h HypeRisk) Valid() bool {
	switch h {
	case HypeLow, HypeMedium, HypeHigh:
		return true
	}
	return false
}

// AccelerationScore is the validated output of the AI text scorer.
// Immutable once produced; cached by content hash of the source text.
type AccelerationScore struct {
	Hash        string      `json:"hash"`
	ScoreType   string      `json:"score_type"`
	Symbol      string      `json:"symbol"`
	GrowthPhase GrowthPhase `json:"growth_phase"`
	Conviction  int         `json:"conviction"` // 0-100
	HypeRisk    HypeRisk    `json:"hype_risk"`
	Evidence    []string    `json:"evidence"`
	Risks       []string    `json:"risks"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SignalType is the verdict emitted by the decision engine.
type SignalType string

const (
	SignalBuy   SignalType = "BUY"
	SignalWatch SignalType = "WATCH"
	SignalSell  SignalType = "SELL"
	SignalAdd   SignalType = "ADD"
	SignalTrim  SignalType = "TRIM"
)

// MarketRegime is the coarse benchmark trend classification.
type MarketRegime string

const (
	RegimeRiskOn  MarketRegime = "RISK_ON"
	RegimeNeutral MarketRegime = "NEUTRAL"
	RegimeRiskOff MarketRegime = "RISK_OFF"
	RegimeUnknown MarketRegime = "UNKNOWN"
)

// SignalReason embeds the full evaluation context so every emitted
// signal is auditable without replaying the run.
type SignalReason struct {
	Regime         MarketRegime `json:"regime"`
	SectorID       string       `json:"sector_id,omitempty"`
	SectorRank     int          `json:"sector_rank,omitempty"`
	Close          float64      `json:"close"`
	EMA21          float64      `json:"ema21,omitempty"`
	EMA50          float64      `json:"ema50,omitempty"`
	RSSlope        float64      `json:"rs_slope,omitempty"`
	VolumeZ        float64      `json:"volume_z,omitempty"`
	TrendConfirmed bool         `json:"trend_confirmed"`
	GrowthPhase    GrowthPhase  `json:"growth_phase,omitempty"`
	Conviction     int          `json:"conviction,omitempty"`
	HypeRisk       HypeRisk     `json:"hype_risk,omitempty"`
	Notes          []string     `json:"notes,omitempty"`
}

// Signal is an append-only decision fact. Never mutated after insert.
type Signal struct {
	ID        int64        `json:"id"`
	Symbol    string       `json:"symbol"`
	Type      SignalType   `json:"signal_type"`
	Reason    SignalReason `json:"reason"`
	CreatedAt time.Time    `json:"created_at"`
}

// PositionState is the paper position lifecycle state.
type PositionState string

const (
	PositionFlat    PositionState = "FLAT"
	PositionOpen    PositionState = "OPEN"
	PositionTrimmed PositionState = "TRIMMED"
	PositionClosed  PositionState = "CLOSED"
)

// PaperPosition is the simulated position for one symbol. At most one
// live (non-CLOSED) row per symbol; mutated only by paper fills.
type PaperPosition struct {
	ID        int64         `json:"id"`
	Symbol    string        `json:"symbol"`
	State     PositionState `json:"state"`
	Shares    int64         `json:"shares"`
	AvgEntry  float64       `json:"avg_entry"`
	StopPrice float64       `json:"stop_price"`
	OpenedAt  time.Time     `json:"opened_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}

// Live reports whether the position currently holds shares.
func (p *PaperPosition) Live() bool {
	return p != nil && (p.State == PositionOpen || p.State == PositionTrimmed)
}

// CandidateState is the per-symbol entry funnel state, recomputed each
// run from current gate values rather than carried forward.
type CandidateState string

const (
	CandidateIgnore     CandidateState = "IGNORE"
	CandidateWatch      CandidateState = "WATCH"
	CandidateReadyToBuy CandidateState = "READY_TO_BUY"
	CandidateInPosition CandidateState = "IN_POSITION"
)

// StopPolicy selects how an initial stop price is derived.
type StopPolicy string

const (
	StopFixedPct    StopPolicy = "fixed_pct"
	StopEMAMinusATR StopPolicy = "ema_atr"
	StopEMA21Exit   StopPolicy = "ema21_3close" // exit trigger, no price level
)

// PortfolioSettings is the single active account/risk configuration row.
type PortfolioSettings struct {
	EquityUSD       float64    `json:"equity_usd"`
	RiskPerTradePct float64    `json:"risk_per_trade_pct"`
	MaxPositionPct  float64    `json:"max_position_pct"`
	StopPolicy      StopPolicy `json:"stop_policy"`
	StopFixedPct    float64    `json:"stop_fixed_pct"` // e.g. 0.12
	StopATRMult     float64    `json:"stop_atr_mult"`  // e.g. 1.5
	TopNSectors     int        `json:"top_n_sectors"`
	RequireAIScore  bool       `json:"require_ai_score"`
	StrictHypeGate  bool       `json:"strict_hype_gate"`
	ExitOnRiskOff   bool       `json:"exit_on_risk_off"`
}

// DefaultPortfolioSettings returns the fallback used when no settings
// row exists yet.
func DefaultPortfolioSettings() PortfolioSettings {
	return PortfolioSettings{
		EquityUSD:       100_000,
		RiskPerTradePct: 0.01,
		MaxPositionPct:  0.20,
		StopPolicy:      StopFixedPct,
		StopFixedPct:    0.12,
		StopATRMult:     1.5,
		TopNSectors:     3,
		RequireAIScore:  true,
		StrictHypeGate:  false,
	}
}
