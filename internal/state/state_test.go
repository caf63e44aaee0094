package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
)

func allGates() Gates {
	return Gates{
		SectorInflow:   true,
		AIOK:           true,
		TrendConfirmed: true,
		RiskOn:         true,
		Liquid:         true,
	}
}

func TestNextCandidate(t *testing.T) {
	tests := []struct {
		name string
		cur  contracts.CandidateState
		g    func() Gates
		want contracts.CandidateState
	}{
		{
			"ignore to watch on inflow and AI without trend",
			contracts.CandidateIgnore,
			func() Gates { g := allGates(); g.TrendConfirmed = false; return g },
			contracts.CandidateWatch,
		},
		{
			"ignore stays without inflow",
			contracts.CandidateIgnore,
			func() Gates { g := allGates(); g.SectorInflow = false; return g },
			contracts.CandidateIgnore,
		},
		{
			"watch to ready when all gates hold",
			contracts.CandidateWatch,
			allGates,
			contracts.CandidateReadyToBuy,
		},
		{
			"watch holds without risk-on",
			contracts.CandidateWatch,
			func() Gates { g := allGates(); g.RiskOn = false; return g },
			contracts.CandidateWatch,
		},
		{
			"watch drops on AI downgrade",
			contracts.CandidateWatch,
			func() Gates { g := allGates(); g.AIDowngraded = true; return g },
			contracts.CandidateIgnore,
		},
		{
			"watch drops on liquidity failure",
			contracts.CandidateWatch,
			func() Gates { g := allGates(); g.Liquid = false; return g },
			contracts.CandidateIgnore,
		},
		{
			"ready regresses to watch when a gate breaks",
			contracts.CandidateReadyToBuy,
			func() Gates { g := allGates(); g.TrendConfirmed = false; return g },
			contracts.CandidateWatch,
		},
		{
			"ready to in-position on fill",
			contracts.CandidateReadyToBuy,
			func() Gates { g := allGates(); g.BuyFilled = true; return g },
			contracts.CandidateInPosition,
		},
		{
			"in-position is terminal",
			contracts.CandidateInPosition,
			func() Gates { return Gates{} },
			contracts.CandidateInPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextCandidate(tt.cur, tt.g()))
		})
	}
}

func TestApplyFill_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// FLAT -> OPEN
	pos, err := ApplyFill(nil, Fill{Symbol: "NVDA", Kind: FillBuy, Price: 100, Shares: 26, At: now})
	require.NoError(t, err)
	assert.Equal(t, contracts.PositionOpen, pos.State)
	assert.Equal(t, int64(26), pos.Shares)
	assert.Equal(t, 100.0, pos.AvgEntry)

	// OPEN -> OPEN on ADD, avg entry recomputed
	pos, err = ApplyFill(pos, Fill{Kind: FillAdd, Price: 110, Shares: 13, At: now.AddDate(0, 0, 5)})
	require.NoError(t, err)
	assert.Equal(t, contracts.PositionOpen, pos.State)
	assert.Equal(t, int64(39), pos.Shares)
	assert.InDelta(t, (100.0*26+110.0*13)/39.0, pos.AvgEntry, 1e-9)

	// OPEN -> TRIMMED, half the shares gone
	pos, err = ApplyFill(pos, Fill{Kind: FillTrim, Price: 130, At: now.AddDate(0, 0, 8)})
	require.NoError(t, err)
	assert.Equal(t, contracts.PositionTrimmed, pos.State)
	assert.Equal(t, int64(20), pos.Shares) // 39 - 39/2

	// TRIMMED -> CLOSED
	closedAt := now.AddDate(0, 0, 20)
	pos, err = ApplyFill(pos, Fill{Kind: FillSell, Price: 90, At: closedAt})
	require.NoError(t, err)
	assert.Equal(t, contracts.PositionClosed, pos.State)
	assert.Equal(t, int64(0), pos.Shares)
	require.NotNil(t, pos.ClosedAt)
	assert.Equal(t, closedAt, *pos.ClosedAt)
	assert.False(t, pos.Live())
}

func TestApplyFill_ClosedIsTerminal(t *testing.T) {
	now := time.Now()
	closed := &contracts.PaperPosition{
		Symbol:   "NVDA",
		State:    contracts.PositionClosed,
		ClosedAt: &now,
	}

	// ADD/TRIM/SELL all rejected on a closed position
	for _, kind := range []FillKind{FillAdd, FillTrim, FillSell} {
		_, err := ApplyFill(closed, Fill{Kind: kind, Price: 100, Shares: 10, At: now})
		assert.Error(t, err, "fill %s should fail on closed position", kind)
	}

	// A new BUY starts a fresh lifecycle, not a reopen
	fresh, err := ApplyFill(closed, Fill{Kind: FillBuy, Price: 120, Shares: 5, At: now})
	require.NoError(t, err)
	assert.Equal(t, contracts.PositionOpen, fresh.State)
	assert.Nil(t, fresh.ClosedAt)
	assert.Equal(t, 120.0, fresh.AvgEntry)
}

func TestApplyFill_IllegalTransitions(t *testing.T) {
	now := time.Now()
	open := &contracts.PaperPosition{Symbol: "NVDA", State: contracts.PositionOpen, Shares: 10, AvgEntry: 100}

	_, err := ApplyFill(open, Fill{Kind: FillBuy, Price: 100, Shares: 5, At: now})
	assert.Error(t, err, "BUY on live position")

	trimmed := &contracts.PaperPosition{Symbol: "NVDA", State: contracts.PositionTrimmed, Shares: 5, AvgEntry: 100}
	_, err = ApplyFill(trimmed, Fill{Kind: FillAdd, Price: 100, Shares: 5, At: now})
	assert.Error(t, err, "ADD on trimmed position")

	tiny := &contracts.PaperPosition{Symbol: "NVDA", State: contracts.PositionOpen, Shares: 1, AvgEntry: 100}
	_, err = ApplyFill(tiny, Fill{Kind: FillTrim, Price: 100, At: now})
	assert.Error(t, err, "trim below one share")
}

func TestShouldAlert_WatchNeverAlerts(t *testing.T) {
	assert.False(t, ShouldAlert("", false, contracts.SignalWatch))
	assert.False(t, ShouldAlert(contracts.SignalWatch, true, contracts.SignalWatch))
	assert.False(t, ShouldAlert(contracts.SignalBuy, true, contracts.SignalWatch))
}

func TestShouldAlert_Actions(t *testing.T) {
	actions := []contracts.SignalType{
		contracts.SignalBuy, contracts.SignalSell, contracts.SignalAdd, contracts.SignalTrim,
	}
	for _, a := range actions {
		assert.True(t, ShouldAlert("", false, a), "first %s alerts", a)
		assert.True(t, ShouldAlert(contracts.SignalWatch, true, a), "%s after WATCH alerts", a)
		assert.False(t, ShouldAlert(a, true, a), "repeated %s is suppressed", a)
	}
}

func TestAlertScenario_OneBuyAlertZeroWatchAlerts(t *testing.T) {
	// BUY transition: exactly one alert
	emitted := 0
	prev, hadPrev := contracts.SignalType(""), false
	for _, v := range []contracts.SignalType{contracts.SignalBuy} {
		if ShouldAlert(prev, hadPrev, v) {
			emitted++
		}
		prev, hadPrev = v, true
	}
	assert.Equal(t, 1, emitted)

	// Two consecutive WATCH verdicts on a fresh symbol: no alerts
	emitted = 0
	prev, hadPrev = "", false
	for _, v := range []contracts.SignalType{contracts.SignalWatch, contracts.SignalWatch} {
		if ShouldAlert(prev, hadPrev, v) {
			emitted++
		}
		prev, hadPrev = v, true
	}
	assert.Equal(t, 0, emitted)
}
