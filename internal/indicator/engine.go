package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

const (
	emaShort  = 21
	emaMid    = 50
	emaLong   = 200
	atrPeriod = 14
	volWindow = 60
	rsWindow  = 10
)

// Engine computes per-symbol technical features from an ordered bar
// history. All methods are side-effect free; the engine holds only a
// logger.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new indicator engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// EMA computes the exponential moving average of values with the given
// period: seed with the simple average of the first period values, then
// smooth forward with k = 2/(period+1). Returns ErrInsufficientHistory
// when fewer than period values exist.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period %d", contracts.ErrInvalidFeature, period)
	}
	if len(values) < period {
		return 0, contracts.ErrInsufficientHistory
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)

	k := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
	}

	if !isFinite(ema) {
		return 0, contracts.ErrInvalidFeature
	}
	return ema, nil
}

// ATRPct computes the average true range over the trailing period bars,
// expressed as a fraction of the latest close. Needs period+1 bars so
// every true range has a previous close.
func ATRPct(bars []contracts.PriceBar, period int) (float64, error) {
	if len(bars) < period+1 {
		return 0, contracts.ErrInsufficientHistory
	}

	latest := bars[len(bars)-1]
	if latest.Close == 0 {
		return 0, fmt.Errorf("%w: zero close", contracts.ErrInvalidFeature)
	}

	var sum float64
	start := len(bars) - period
	for i := start; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if v := math.Abs(bars[i].High - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(bars[i].Low - prevClose); v > tr {
			tr = v
		}
		sum += tr
	}

	atrPct := (sum / float64(period)) / latest.Close
	if !isFinite(atrPct) {
		return 0, contracts.ErrInvalidFeature
	}
	return atrPct, nil
}

// VolumeZ computes the z-score of the latest volume against the
// trailing window (window includes the latest point). A constant series
// has zero stdev and scores exactly 0.
func VolumeZ(volumes []int64, window int) (float64, error) {
	if len(volumes) < 2 {
		return 0, contracts.ErrInsufficientHistory
	}
	if len(volumes) > window {
		volumes = volumes[len(volumes)-window:]
	}

	n := float64(len(volumes))
	var sum float64
	for _, v := range volumes {
		sum += float64(v)
	}
	mean := sum / n

	var sq float64
	for _, v := range volumes {
		d := float64(v) - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / n)
	if stdev == 0 {
		return 0, nil
	}

	z := (float64(volumes[len(volumes)-1]) - mean) / stdev
	if !isFinite(z) {
		return 0, contracts.ErrInvalidFeature
	}
	return z, nil
}

// RSSeries builds the relative-strength ratio series close/benchClose
// for each bar date. Bars with a missing or zero benchmark close are
// skipped; if the latest bar has none, the series is unusable for the
// as-of date and ErrMissingBenchmark is returned.
func RSSeries(bars []contracts.PriceBar, benchCloses map[time.Time]float64) ([]float64, error) {
	if len(bars) == 0 {
		return nil, contracts.ErrInsufficientHistory
	}

	latestDate := dateKey(bars[len(bars)-1].Date)
	if bc, ok := benchCloses[latestDate]; !ok || bc == 0 {
		return nil, contracts.ErrMissingBenchmark
	}

	series := make([]float64, 0, len(bars))
	for _, b := range bars {
		bc, ok := benchCloses[dateKey(b.Date)]
		if !ok || bc == 0 {
			continue
		}
		series = append(series, b.Close/bc)
	}
	return series, nil
}

// OLSSlope computes the ordinary-least-squares slope of ys against
// index positions 0..n-1. Returns ErrInsufficientHistory below 2 points
// and ErrInvalidFeature when the denominator degenerates.
func OLSSlope(ys []float64) (float64, error) {
	n := len(ys)
	if n < 2 {
		return 0, contracts.ErrInsufficientHistory
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0, fmt.Errorf("%w: degenerate OLS denominator", contracts.ErrInvalidFeature)
	}

	slope := (float64(n)*sumXY - sumX*sumY) / denom
	if !isFinite(slope) {
		return 0, contracts.ErrInvalidFeature
	}
	return slope, nil
}

// Compute derives the full indicator row for a symbol at asOf. The bar
// history must be ordered ascending and end exactly on asOf; any missing
// sub-computation skips the symbol for the date (no partial rows).
func (e *Engine) Compute(symbol string, bars []contracts.PriceBar, benchCloses map[time.Time]float64, asOf time.Time) (*contracts.IndicatorRow, error) {
	if len(bars) == 0 {
		return nil, contracts.ErrInsufficientHistory
	}

	latest := bars[len(bars)-1]
	if !sameDay(latest.Date, asOf) {
		return nil, contracts.ErrStaleHistory
	}

	closes := make([]float64, len(bars))
	volumes := make([]int64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ema21, err := EMA(closes, emaShort)
	if err != nil {
		return nil, fmt.Errorf("ema21: %w", err)
	}
	ema50, err := EMA(closes, emaMid)
	if err != nil {
		return nil, fmt.Errorf("ema50: %w", err)
	}
	ema200, err := EMA(closes, emaLong)
	if err != nil {
		return nil, fmt.Errorf("ema200: %w", err)
	}

	atrPct, err := ATRPct(bars, atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr_pct: %w", err)
	}

	volZ, err := VolumeZ(volumes, volWindow)
	if err != nil {
		return nil, fmt.Errorf("volume_z: %w", err)
	}

	rsSeries, err := RSSeries(bars, benchCloses)
	if err != nil {
		return nil, fmt.Errorf("rs: %w", err)
	}
	rs := rsSeries[len(rsSeries)-1]

	window := rsSeries
	if len(window) > rsWindow {
		window = window[len(window)-rsWindow:]
	}
	rsSlope, err := OLSSlope(window)
	if err != nil {
		return nil, fmt.Errorf("rs_slope: %w", err)
	}

	row := &contracts.IndicatorRow{
		Symbol:     symbol,
		Date:       latest.Date,
		EMA21:      ema21,
		EMA50:      ema50,
		EMA200:     ema200,
		ATRPct:     atrPct,
		RSvsBench:  rs,
		RSSlope10D: rsSlope,
		VolumeZ:    volZ,
		DollarVol:  latest.DollarVolume(),
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"date":     latest.Date.Format("2006-01-02"),
		"ema21":    ema21,
		"atr_pct":  atrPct,
		"volume_z": volZ,
		"rs_slope": rsSlope,
	}).Debug("Computed indicator row")

	return row, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
