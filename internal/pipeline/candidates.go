package pipeline

import (
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/decision"
	"github.com/mingkaili/ai-trading-signal-engine/internal/state"
)

// Dollar-volume floor for the candidate liquidity gate.
const minDollarVol = 20_000_000

// CandidateFor derives the symbol's candidate state for this run. The
// funnel is recomputed from the run's gate values each time, never
// carried forward; a live position short-circuits to IN_POSITION.
func CandidateFor(in decision.Input, buyFilled bool) contracts.CandidateState {
	if in.Position.Live() {
		return contracts.CandidateInPosition
	}
	if buyFilled {
		return contracts.CandidateInPosition
	}

	// Step twice from IGNORE so a symbol whose gates already hold
	// settles at the fixpoint for this run's gate values.
	g := candidateGates(in, buyFilled)
	s := state.NextCandidate(contracts.CandidateIgnore, g)
	return state.NextCandidate(s, g)
}

func candidateGates(in decision.Input, buyFilled bool) state.Gates {
	gate := decision.AIGate(in.Score, in.Settings)
	return state.Gates{
		SectorInflow:   in.SectorRank >= 1 && in.SectorRank <= in.Settings.TopNSectors,
		AIOK:           gate == decision.AIGatePass,
		TrendConfirmed: decision.TrendConfirmed(in.Row, in.Close, in.VolZRecent),
		RiskOn:         in.Regime == contracts.RegimeRiskOn,
		Liquid:         in.Row != nil && in.Row.DollarVol >= minDollarVol,
		AIDowngraded:   gate == decision.AIGateFail && in.ScoreIsFresh,
		BuyFilled:      buyFilled,
	}
}
