package sector

import (
	"context"
	"sort"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/indicator"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// Composite score weights. Relative strength dominates; breadth and
// dollar-volume confirm that money is actually moving in.
const (
	weightRelStrength = 0.5
	weightBreadth     = 0.3
	weightDollarVolZ  = 0.2
)

// minBars is the minimum ETF/benchmark history for a 5-day return.
const minBars = 6

// MemberSnapshot is a sector member's latest close and EMA21, used for
// the breadth count. HasEMA is false for members too young to have one.
type MemberSnapshot struct {
	Symbol string
	Close  float64
	EMA21  float64
	HasEMA bool
}

// Input is everything the ranker needs for one sector: ETF and
// benchmark bars ascending by date, plus member snapshots.
type Input struct {
	Sector    contracts.Sector
	ETFBars   []contracts.PriceBar
	BenchBars []contracts.PriceBar
	Members   []MemberSnapshot
}

// Ranker scores a sector cohort and assigns dense ranks. Ranking is a
// full-batch operation: every qualifying sector is scored before any
// rank exists, and a re-run overwrites the whole week.
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new sector ranker.
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log}
}

// RankWeek scores all inputs and returns the complete ranked cohort for
// the week. Sectors with insufficient ETF or benchmark history are
// dropped from the cohort entirely. Ties keep input order (stable sort).
func (r *Ranker) RankWeek(ctx context.Context, inputs []Input, weekEnd time.Time) []contracts.SectorMetric {
	metrics := make([]contracts.SectorMetric, 0, len(inputs))

	for _, in := range inputs {
		m, ok := r.score(in, weekEnd)
		if !ok {
			r.logger.WithFields(map[string]interface{}{
				"sector":     in.Sector.ID,
				"etf_bars":   len(in.ETFBars),
				"bench_bars": len(in.BenchBars),
			}).Debug("Sector skipped, insufficient history")
			continue
		}
		metrics = append(metrics, m)
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Composite > metrics[j].Composite
	})
	for i := range metrics {
		metrics[i].Rank = i + 1
	}

	if len(metrics) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"week_end":  weekEnd.Format("2006-01-02"),
			"sectors":   len(metrics),
			"top":       metrics[0].SectorID,
			"top_score": metrics[0].Composite,
		}).Info("Sector ranking completed")
	}

	return metrics
}

// score computes the composite for one sector. Returns ok=false when
// the sector does not qualify for the cohort.
func (r *Ranker) score(in Input, weekEnd time.Time) (contracts.SectorMetric, bool) {
	if len(in.ETFBars) < minBars || len(in.BenchBars) < minBars {
		return contracts.SectorMetric{}, false
	}

	etfRet, ok := fiveDayReturn(in.ETFBars)
	if !ok {
		return contracts.SectorMetric{}, false
	}
	benchRet, ok := fiveDayReturn(in.BenchBars)
	if !ok {
		return contracts.SectorMetric{}, false
	}
	relStrength := etfRet - benchRet

	dvz := dollarVolZ(in.ETFBars)
	breadth := breadthOf(in.Members)

	composite := weightRelStrength*relStrength +
		weightBreadth*breadth +
		weightDollarVolZ*dvz

	return contracts.SectorMetric{
		SectorID:    in.Sector.ID,
		WeekEnd:     weekEnd,
		ETFSymbol:   in.Sector.ETFSymbol,
		BenchSymbol: in.Sector.BenchSymbol,
		ETFReturn5D: etfRet,
		RelStrength: relStrength,
		DollarVolZ:  dvz,
		Breadth:     breadth,
		Composite:   composite,
	}, true
}

// fiveDayReturn is close[-1]/close[-6] - 1.
func fiveDayReturn(bars []contracts.PriceBar) (float64, bool) {
	if len(bars) < minBars {
		return 0, false
	}
	base := bars[len(bars)-minBars].Close
	if base == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close/base - 1, true
}

// dollarVolZ computes the z-score of the latest close*volume against
// the ETF's trailing series. Degenerate series score 0.
func dollarVolZ(bars []contracts.PriceBar) float64 {
	dollarVols := make([]int64, len(bars))
	for i, b := range bars {
		dollarVols[i] = int64(b.DollarVolume())
	}

	z, err := indicator.VolumeZ(dollarVols, len(dollarVols))
	if err != nil {
		return 0
	}
	return z
}

// breadthOf is the fraction of members trading above their EMA21,
// counted only over members with both values present.
func breadthOf(members []MemberSnapshot) float64 {
	withBoth := 0
	above := 0
	for _, m := range members {
		if !m.HasEMA || m.Close == 0 {
			continue
		}
		withBoth++
		if m.Close > m.EMA21 {
			above++
		}
	}
	if withBoth == 0 {
		return 0
	}
	return float64(above) / float64(withBoth)
}
