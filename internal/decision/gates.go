package decision

import (
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Classify maps benchmark close against its long EMAs to a market
// regime. Zero EMAs mean the benchmark has no indicator row yet and the
// regime is unknown.
func Classify(close, ema50, ema200 float64) contracts.MarketRegime {
	if close <= 0 || ema50 <= 0 || ema200 <= 0 {
		return contracts.RegimeUnknown
	}

	switch {
	case close > ema50 && close > ema200:
		return contracts.RegimeRiskOn
	case close <= ema200:
		return contracts.RegimeRiskOff
	default:
		return contracts.RegimeNeutral
	}
}

// TrendConfirmed reports whether the symbol's trend gate holds: close
// above EMA21, EMA21 above EMA50, rising relative strength, and a
// volume thrust today or within the trailing five sessions. A nil row
// is never confirmed.
func TrendConfirmed(row *contracts.IndicatorRow, close float64, volZRecent []float64) bool {
	if row == nil {
		return false
	}
	if close <= row.EMA21 || row.EMA21 <= row.EMA50 {
		return false
	}
	if row.RSSlope10D <= 0 {
		return false
	}

	if row.VolumeZ >= volZThreshold {
		return true
	}
	for _, z := range volZRecent {
		if z >= volZThreshold {
			return true
		}
	}
	return false
}

// AIGateResult is the three-way outcome of the AI conviction gate.
type AIGateResult int

const (
	// AIGateFail means a score exists but does not clear the gate, or
	// gating is enabled and nothing can clear it.
	AIGateFail AIGateResult = iota
	// AIGatePass means the gate is cleared (or gating is disabled).
	AIGatePass
	// AIGateAbsent means gating is enabled and no score exists yet:
	// BUY downgrades to WATCH.
	AIGateAbsent
)

// AIGate evaluates the acceleration score against the configured gate.
func AIGate(score *contracts.AccelerationScore, s contracts.PortfolioSettings) AIGateResult {
	if !s.RequireAIScore {
		return AIGatePass
	}
	if score == nil {
		return AIGateAbsent
	}

	accelerating := score.GrowthPhase == contracts.PhaseEarlyAcceleration ||
		score.GrowthPhase == contracts.PhaseStrongAcceleration
	if !accelerating || score.Conviction < minBuyConviction {
		return AIGateFail
	}
	if s.StrictHypeGate && score.HypeRisk == contracts.HypeHigh {
		return AIGateFail
	}
	return AIGatePass
}
