package risk

import (
	"fmt"
	"math"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

// SizeResult is the outcome of sizing one entry.
type SizeResult struct {
	Shares       int64
	RiskPerShare float64
	SharesByRisk int64
	SharesByCap  int64
}

// Size converts an entry/stop pair and account settings into a bounded
// share quantity. The position is capped both by risk budget (equity x
// risk% / risk-per-share) and by position size (equity x cap% / entry);
// the smaller wins. Returns ErrRiskRejected when risk per share is
// non-positive or the bounded quantity is below one share.
func Size(entry, stop float64, s contracts.PortfolioSettings) (SizeResult, error) {
	riskPerShare := entry - stop
	if riskPerShare <= 0 {
		return SizeResult{}, fmt.Errorf("%w: risk per share %.4f", contracts.ErrRiskRejected, riskPerShare)
	}
	if entry <= 0 {
		return SizeResult{}, fmt.Errorf("%w: non-positive entry", contracts.ErrRiskRejected)
	}

	sharesByRisk := int64(math.Floor((s.EquityUSD * s.RiskPerTradePct) / riskPerShare))
	sharesByCap := int64(math.Floor((s.EquityUSD * s.MaxPositionPct) / entry))

	shares := sharesByRisk
	if sharesByCap < shares {
		shares = sharesByCap
	}

	if shares < 1 {
		return SizeResult{}, fmt.Errorf("%w: %d shares", contracts.ErrRiskRejected, shares)
	}

	return SizeResult{
		Shares:       shares,
		RiskPerShare: riskPerShare,
		SharesByRisk: sharesByRisk,
		SharesByCap:  sharesByCap,
	}, nil
}

// FitsPositionCap reports whether a position of shares at avg price
// stays within the per-position cap. Used by the ADD gate.
func FitsPositionCap(shares int64, price float64, s contracts.PortfolioSettings) bool {
	return float64(shares)*price <= s.EquityUSD*s.MaxPositionPct
}
