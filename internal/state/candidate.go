package state

import (
	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// Gates are the boolean inputs driving the candidate machine for one
// run. They are derived fresh each run from current feature values, not
// carried forward.
type Gates struct {
	SectorInflow   bool // sector ranked in top-N this week
	AIOK           bool // AI gate cleared
	TrendConfirmed bool
	RiskOn         bool
	Liquid         bool // passes the dollar-volume floor
	AIDowngraded   bool // fresh score fell below the gate
	BuyFilled      bool // a BUY was filled this run
}

// NextCandidate advances the per-symbol candidate state from the
// current run's gates. IN_POSITION is terminal here; once filled, the
// position lifecycle owns the symbol.
func NextCandidate(cur contracts.CandidateState, g Gates) contracts.CandidateState {
	switch cur {
	case contracts.CandidateIgnore:
		if g.SectorInflow && g.AIOK && !g.TrendConfirmed && g.Liquid {
			return contracts.CandidateWatch
		}
		// Everything aligned at once: still step through WATCH on the
		// way in unless the trend gate already holds.
		if g.SectorInflow && g.AIOK && g.TrendConfirmed && g.RiskOn && g.Liquid {
			return contracts.CandidateReadyToBuy
		}
		return contracts.CandidateIgnore

	case contracts.CandidateWatch:
		if g.AIDowngraded || !g.Liquid {
			return contracts.CandidateIgnore
		}
		if g.SectorInflow && g.AIOK && g.TrendConfirmed && g.RiskOn {
			return contracts.CandidateReadyToBuy
		}
		return contracts.CandidateWatch

	case contracts.CandidateReadyToBuy:
		if g.BuyFilled {
			return contracts.CandidateInPosition
		}
		// Any regressed gate drops back to WATCH
		if !g.SectorInflow || !g.AIOK || !g.TrendConfirmed || !g.RiskOn {
			return contracts.CandidateWatch
		}
		return contracts.CandidateReadyToBuy

	case contracts.CandidateInPosition:
		return contracts.CandidateInPosition

	default:
		return contracts.CandidateIgnore
	}
}
