package risk

import (
	"fmt"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// StopFor derives the initial stop price for an entry under the
// configured policy.
//
// The ema21_3close policy has no initial price level: exits fire from
// the close-below-EMA21 streak in the decision engine. It still gets a
// protective price here (fixed percentage) so sizing has a risk anchor.
func StopFor(entry float64, row *contracts.IndicatorRow, s contracts.PortfolioSettings) (float64, error) {
	switch s.StopPolicy {
	case contracts.StopFixedPct, contracts.StopEMA21Exit:
		pct := s.StopFixedPct
		if pct <= 0 || pct >= 1 {
			pct = 0.12
		}
		return entry * (1 - pct), nil

	case contracts.StopEMAMinusATR:
		if row == nil {
			return 0, fmt.Errorf("%w: no indicator row for ATR stop", contracts.ErrRiskRejected)
		}
		k := s.StopATRMult
		if k <= 0 {
			k = 1.5
		}
		// ATRPct is a fraction of price; scale back to dollars
		atr := row.ATRPct * entry
		stop := row.EMA21 - k*atr
		if stop <= 0 || stop >= entry {
			// Degenerate stop (thin history or extreme volatility):
			// fall back to the fixed percentage floor.
			return entry * (1 - 0.12), nil
		}
		return stop, nil

	default:
		return 0, fmt.Errorf("unknown stop policy %q", s.StopPolicy)
	}
}
