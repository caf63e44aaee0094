package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/internal/sector"
)

// sectorHistoryDepth is the ETF/benchmark window for the weekly rank:
// enough for the 5-day return plus the dollar-volume z baseline.
const sectorHistoryDepth = 90

// RankSectors recomputes and stores the full sector cohort for the
// week containing asOf. Ranking is all-or-nothing: every qualifying
// sector is scored before any rank is written, and the stored week is
// replaced whole.
func (o *Orchestrator) RankSectors(ctx context.Context, asOf time.Time) ([]contracts.SectorMetric, error) {
	weekEnd := WeekEndOnOrBefore(asOf)

	sectors, err := o.sectorRepo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}

	inputs := make([]sector.Input, 0, len(sectors))
	for _, s := range sectors {
		in, err := o.sectorInput(ctx, s, asOf)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	metrics := o.ranker.RankWeek(ctx, inputs, weekEnd)

	if err := o.sectorRepo.ReplaceWeek(ctx, weekEnd, metrics); err != nil {
		return nil, fmt.Errorf("replace week %s: %w", weekEnd.Format("2006-01-02"), err)
	}
	return metrics, nil
}

// sectorInput loads one sector's ETF and benchmark history plus member
// snapshots for the breadth count.
func (o *Orchestrator) sectorInput(ctx context.Context, s contracts.Sector, asOf time.Time) (sector.Input, error) {
	etfBars, err := o.barRepo.LoadBars(ctx, s.ETFSymbol, asOf, sectorHistoryDepth)
	if err != nil {
		return sector.Input{}, fmt.Errorf("load ETF bars for %s: %w", s.ID, err)
	}
	benchBars, err := o.barRepo.LoadBars(ctx, s.BenchSymbol, asOf, sectorHistoryDepth)
	if err != nil {
		return sector.Input{}, fmt.Errorf("load bench bars for %s: %w", s.ID, err)
	}

	members := make([]sector.MemberSnapshot, 0, len(s.Members))
	for _, symbol := range s.Members {
		snap := sector.MemberSnapshot{Symbol: symbol}

		bars, err := o.barRepo.LoadBars(ctx, symbol, asOf, 1)
		if err != nil {
			return sector.Input{}, fmt.Errorf("load bars for member %s: %w", symbol, err)
		}
		if len(bars) > 0 {
			snap.Close = bars[len(bars)-1].Close
		}

		row, err := o.indicatorRepo.GetBySymbolAndDate(ctx, symbol, dateOnly(asOf))
		if err != nil {
			return sector.Input{}, fmt.Errorf("load indicator row for member %s: %w", symbol, err)
		}
		if row != nil {
			snap.EMA21 = row.EMA21
			snap.HasEMA = true
		}

		members = append(members, snap)
	}

	return sector.Input{
		Sector:    s,
		ETFBars:   etfBars,
		BenchBars: benchBars,
		Members:   members,
	}, nil
}

// WeekEndOnOrBefore returns the most recent Friday on or before t.
// Weekly sector cohorts are keyed by that date.
func WeekEndOnOrBefore(t time.Time) time.Time {
	d := dateOnly(t)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
