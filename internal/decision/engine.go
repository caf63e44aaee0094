package decision

import (
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Gate thresholds.
const (
	volZThreshold      = 1.0
	minBuyConviction   = 75
	maxHoldConviction  = 60
	trimGainThreshold  = 0.25
	trimWindowSessions = 10
	addPriceMultiple   = 1.05
	exitStreakSessions = 3
)

// Input is the complete evaluation context for one symbol in one run.
// Everything is passed explicitly; the engine holds no state between
// evaluations and performs no I/O.
type Input struct {
	Symbol string

	// Market context
	Regime     contracts.MarketRegime
	SectorID   string
	SectorRank int // 0 = sector unranked this week

	// Latest price. Required for any verdict.
	Close float64

	// Trend features. Row is nil when no indicator row exists for the
	// as-of date; absence reads as "trend not confirmed".
	Row *contracts.IndicatorRow

	// Trailing volume z-scores, oldest first, today last. Up to 5.
	VolZRecent []float64

	// Consecutive sessions (including today) with close below EMA21.
	BelowEMA21Streak int

	// AI score, nil when absent. ScoreIsFresh marks a score that
	// arrived since the previous run; only fresh downgrades force exits.
	Score        *contracts.AccelerationScore
	ScoreIsFresh bool

	// Open position context; Position nil or non-live means flat.
	Position           *contracts.PaperPosition
	SessionsSinceEntry int

	Settings contracts.PortfolioSettings
}

// Verdict is the single decision for a symbol. OK is false when no
// signal should be emitted this run.
type Verdict struct {
	OK     bool
	Type   contracts.SignalType
	Reason contracts.SignalReason
}

// Evaluate maps the evaluation context to at most one verdict.
// Order protects capital: SELL conditions first, then TRIM/ADD against
// an open position, then BUY/WATCH for flat symbols. Missing data is a
// valid input, never an error: no regime means no verdict, no score
// means the AI gate fails.
func Evaluate(in Input) Verdict {
	if in.Regime == contracts.RegimeUnknown || in.Regime == "" || in.Close <= 0 {
		return Verdict{}
	}

	if in.Position.Live() {
		if v, ok := evaluateExit(in); ok {
			return v
		}
		if v, ok := evaluateTrim(in); ok {
			return v
		}
		if v, ok := evaluateAdd(in); ok {
			return v
		}
		return Verdict{}
	}

	return evaluateEntry(in)
}

// evaluateExit checks the SELL conditions in priority order.
func evaluateExit(in Input) (Verdict, bool) {
	pos := in.Position

	if pos.StopPrice > 0 && in.Close <= pos.StopPrice {
		return sell(in, "stop price breached"), true
	}

	if in.BelowEMA21Streak >= exitStreakSessions {
		return sell(in, "close below EMA21 for 3 sessions"), true
	}

	if in.Score != nil && in.ScoreIsFresh {
		if in.Score.Conviction < maxHoldConviction || in.Score.GrowthPhase == contracts.PhaseDecelerating {
			return sell(in, "AI score downgrade"), true
		}
	}

	if in.Settings.ExitOnRiskOff && in.Regime == contracts.RegimeRiskOff {
		if in.Row != nil && in.Close < in.Row.EMA50 {
			return sell(in, "risk-off regime, close below EMA50"), true
		}
	}

	return Verdict{}, false
}

// evaluateTrim fires when the position gained 25% within 10 sessions of
// entry. TRIM and ADD are mutually exclusive per run; TRIM wins because
// it banks profit.
func evaluateTrim(in Input) (Verdict, bool) {
	pos := in.Position
	if pos.AvgEntry <= 0 {
		return Verdict{}, false
	}
	// A single share cannot be split in half.
	if pos.Shares < 2 {
		return Verdict{}, false
	}

	gain := in.Close/pos.AvgEntry - 1
	if gain >= trimGainThreshold && in.SessionsSinceEntry <= trimWindowSessions {
		return verdict(in, contracts.SignalTrim, "gain >= 25% within 10 sessions"), true
	}
	return Verdict{}, false
}

// evaluateAdd pyramids a winner: price extended 5% past entry, still in
// trend, market supportive, sector still leading, and room under the
// position cap for at least one more share.
func evaluateAdd(in Input) (Verdict, bool) {
	pos := in.Position
	// Only untouched open positions pyramid; a trimmed position already
	// banked profit and is ridden out, never rebuilt.
	if pos.State != contracts.PositionOpen {
		return Verdict{}, false
	}
	if in.Regime != contracts.RegimeRiskOn {
		return Verdict{}, false
	}
	if in.Row == nil || in.Close <= in.Row.EMA21 {
		return Verdict{}, false
	}
	if pos.AvgEntry <= 0 || in.Close < pos.AvgEntry*addPriceMultiple {
		return Verdict{}, false
	}
	if !sectorInTopN(in) {
		return Verdict{}, false
	}

	// Resulting position must stay within the cap
	capUSD := in.Settings.EquityUSD * in.Settings.MaxPositionPct
	if float64(pos.Shares+1)*in.Close > capUSD {
		return Verdict{}, false
	}

	return verdict(in, contracts.SignalAdd, "extension add within position cap"), true
}

// evaluateEntry decides BUY versus WATCH for a flat symbol.
func evaluateEntry(in Input) Verdict {
	if !sectorInTopN(in) {
		return Verdict{}
	}

	trend := TrendConfirmed(in.Row, in.Close, in.VolZRecent)
	gate := AIGate(in.Score, in.Settings)

	switch gate {
	case AIGatePass:
		if in.Regime == contracts.RegimeRiskOn && trend {
			return verdict(in, contracts.SignalBuy, "all entry gates passed")
		}
		return verdict(in, contracts.SignalWatch, "sector leading, waiting on trend or regime")

	case AIGateAbsent:
		// Score required but missing: never BUY blind, downgrade
		if in.Regime == contracts.RegimeRiskOn && trend {
			return verdict(in, contracts.SignalWatch, "awaiting AI score")
		}
		return Verdict{}

	default: // AIGateFail
		return Verdict{}
	}
}

func sectorInTopN(in Input) bool {
	topN := in.Settings.TopNSectors
	return in.SectorRank >= 1 && in.SectorRank <= topN
}

func sell(in Input, note string) Verdict {
	return verdict(in, contracts.SignalSell, note)
}

func verdict(in Input, t contracts.SignalType, note string) Verdict {
	reason := contracts.SignalReason{
		Regime:         in.Regime,
		SectorID:       in.SectorID,
		SectorRank:     in.SectorRank,
		Close:          in.Close,
		TrendConfirmed: TrendConfirmed(in.Row, in.Close, in.VolZRecent),
		Notes:          []string{note},
	}
	if in.Row != nil {
		reason.EMA21 = in.Row.EMA21
		reason.EMA50 = in.Row.EMA50
		reason.RSSlope = in.Row.RSSlope10D
		reason.VolumeZ = in.Row.VolumeZ
	}
	if in.Score != nil {
		reason.GrowthPhase = in.Score.GrowthPhase
		reason.Conviction = in.Score.Conviction
		reason.HypeRisk = in.Score.HypeRisk
	}
	return Verdict{OK: true, Type: t, Reason: reason}
}
