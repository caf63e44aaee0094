package pipeline

import (
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/indicator"
)

// volZLookback is how many trailing sessions of volume z-scores feed
// the decision engine's surge check.
const volZLookback = 5

// streakLookback caps the below-EMA21 streak recomputation; the exit
// rule only needs to know about the first three sessions.
const streakLookback = 5

// SymbolContext is the per-symbol decision context derived from bar
// history beyond what the indicator row itself carries.
type SymbolContext struct {
	VolZRecent       []float64
	BelowEMA21Streak int
}

// BuildSymbolContext recomputes the trailing session context from the
// bar history. Pure computation over the provided bars; sessions too
// young for a value are simply absent.
func BuildSymbolContext(bars []contracts.PriceBar) SymbolContext {
	ctx := SymbolContext{}

	volumes := make([]int64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
		closes[i] = b.Close
	}

	// Trailing volume z-scores, oldest first, today last
	start := len(bars) - volZLookback
	if start < 0 {
		start = 0
	}
	for i := start; i < len(bars); i++ {
		z, err := indicator.VolumeZ(volumes[:i+1], 60)
		if err != nil {
			continue
		}
		ctx.VolZRecent = append(ctx.VolZRecent, z)
	}

	// Consecutive sessions, today backwards, with close below EMA21
	for back := 0; back < streakLookback; back++ {
		i := len(bars) - 1 - back
		if i < 0 {
			break
		}
		ema, err := indicator.EMA(closes[:i+1], 21)
		if err != nil {
			break
		}
		if closes[i] >= ema {
			break
		}
		ctx.BelowEMA21Streak++
	}

	return ctx
}

// SessionsSince counts bars strictly after the entry date, i.e.
// trading sessions elapsed since entry. Calendar gaps do not count.
func SessionsSince(bars []contracts.PriceBar, entry time.Time) int {
	sessions := 0
	for _, b := range bars {
		if b.Date.After(entry) {
			sessions++
		}
	}
	return sessions
}
