package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

func TestEMA_InsufficientHistory(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
	}{
		{"empty series", nil, 3},
		{"one short", []float64{1, 2}, 3},
		{"long period", []float64{1, 2, 3, 4, 5}, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EMA(tt.values, tt.period)
			assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
		})
	}
}

func TestEMA_SeedAndSmoothing(t *testing.T) {
	// period=3: seed=(1+2+3)/3=2, k=0.5
	// then 4*0.5+2*0.5=3, 5*0.5+3*0.5=4
	got, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-9)
}

func TestEMA_ExactLength(t *testing.T) {
	// Exactly period values: EMA is the plain SMA seed
	got, err := EMA([]float64{10, 20, 30}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got, 1e-9)
}

func TestEMA_Deterministic(t *testing.T) {
	series := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	a, err := EMA(series, 5)
	require.NoError(t, err)
	b, err := EMA(series, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func barsFromOHLC(rows [][4]float64) []contracts.PriceBar {
	bars := make([]contracts.PriceBar, len(rows))
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, r := range rows {
		bars[i] = contracts.PriceBar{
			Symbol: "TEST",
			Date:   day.AddDate(0, 0, i),
			Open:   r[0],
			High:   r[1],
			Low:    r[2],
			Close:  r[3],
			Volume: 1000,
		}
	}
	return bars
}

func flatBars(n int, price float64) []contracts.PriceBar {
	rows := make([][4]float64, n)
	for i := range rows {
		rows[i] = [4]float64{price, price, price, price}
	}
	return barsFromOHLC(rows)
}

func TestATRPct_RequiresPeriodPlusOne(t *testing.T) {
	_, err := ATRPct(flatBars(14, 100), 14)
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)

	_, err = ATRPct(flatBars(15, 100), 14)
	assert.NoError(t, err)
}

func TestATRPct_NonNegative(t *testing.T) {
	rows := [][4]float64{}
	price := 50.0
	for i := 0; i < 30; i++ {
		// alternate up and down days with real ranges
		hi := price * 1.03
		lo := price * 0.97
		cl := price * (1 + 0.01*float64(i%3-1))
		rows = append(rows, [4]float64{price, hi, lo, cl})
		price = cl
	}

	atr, err := ATRPct(barsFromOHLC(rows), 14)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atr, 0.0)
}

func TestATRPct_ZeroClose(t *testing.T) {
	bars := flatBars(20, 100)
	bars[len(bars)-1].Close = 0
	_, err := ATRPct(bars, 14)
	assert.ErrorIs(t, err, contracts.ErrInvalidFeature)
}

func TestATRPct_GapUsesPrevClose(t *testing.T) {
	// Gap-up day: true range driven by |high - prevClose|
	rows := [][4]float64{}
	for i := 0; i < 14; i++ {
		rows = append(rows, [4]float64{100, 100, 100, 100})
	}
	rows = append(rows, [4]float64{120, 121, 119, 120})

	atr, err := ATRPct(barsFromOHLC(rows), 14)
	require.NoError(t, err)
	// TR of gap day is 21 (121-100); 13 flat days contribute 0
	assert.InDelta(t, (21.0/14.0)/120.0, atr, 1e-9)
}

func TestVolumeZ_ConstantSeriesIsZero(t *testing.T) {
	vols := make([]int64, 60)
	for i := range vols {
		vols[i] = 5000
	}

	z, err := VolumeZ(vols, 60)
	require.NoError(t, err)
	assert.Equal(t, 0.0, z)
}

func TestVolumeZ_FewerThanTwoPoints(t *testing.T) {
	_, err := VolumeZ([]int64{100}, 60)
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
}

func TestVolumeZ_SpikeIsPositive(t *testing.T) {
	vols := make([]int64, 59)
	for i := range vols {
		vols[i] = 1000
	}
	vols = append(vols, 10_000)

	z, err := VolumeZ(vols, 60)
	require.NoError(t, err)
	assert.Greater(t, z, 1.0)
}

func TestOLSSlope(t *testing.T) {
	tests := []struct {
		name    string
		ys      []float64
		want    float64
		wantErr error
	}{
		{"too short", []float64{1}, 0, contracts.ErrInsufficientHistory},
		{"perfect line", []float64{1, 2, 3, 4, 5}, 1.0, nil},
		{"flat", []float64{2, 2, 2, 2}, 0.0, nil},
		{"descending", []float64{10, 8, 6, 4}, -2.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OLSSlope(tt.ys)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRSSeries_MissingBenchmark(t *testing.T) {
	bars := flatBars(10, 100)

	_, err := RSSeries(bars, map[time.Time]float64{})
	assert.ErrorIs(t, err, contracts.ErrMissingBenchmark)

	// Benchmark present but zero on the latest date
	bench := map[time.Time]float64{}
	for _, b := range bars {
		bench[dateKey(b.Date)] = 400
	}
	bench[dateKey(bars[len(bars)-1].Date)] = 0
	_, err = RSSeries(bars, bench)
	assert.ErrorIs(t, err, contracts.ErrMissingBenchmark)
}

func TestCompute_FullRow(t *testing.T) {
	engine := NewEngine(logger.NewNop())

	bars := flatBars(240, 100)
	// add some movement so nothing collapses to degenerate values
	for i := range bars {
		drift := 1 + 0.001*float64(i)
		bars[i].Open *= drift
		bars[i].High = bars[i].Open * 1.02
		bars[i].Low = bars[i].Open * 0.98
		bars[i].Close = bars[i].Open * 1.01
		bars[i].Volume = int64(1000 + 7*i)
	}

	bench := map[time.Time]float64{}
	for _, b := range bars {
		bench[dateKey(b.Date)] = 400
	}

	asOf := bars[len(bars)-1].Date
	row, err := engine.Compute("NVDA", bars, bench, asOf)
	require.NoError(t, err)

	assert.Equal(t, "NVDA", row.Symbol)
	assert.Equal(t, asOf, row.Date)
	assert.Greater(t, row.EMA21, row.EMA200, "uptrending series puts fast EMA above slow")
	assert.Greater(t, row.ATRPct, 0.0)
	assert.Greater(t, row.RSSlope10D, 0.0, "rising close against flat bench has positive RS slope")
	assert.InDelta(t, bars[len(bars)-1].DollarVolume(), row.DollarVol, 1e-6)
	assert.False(t, math.IsNaN(row.VolumeZ))
}

func TestCompute_StaleHistorySkipped(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	bars := flatBars(240, 100)
	bench := map[time.Time]float64{}
	for _, b := range bars {
		bench[dateKey(b.Date)] = 400
	}

	// As-of one day past the last bar: no fill, no row
	asOf := bars[len(bars)-1].Date.AddDate(0, 0, 1)
	_, err := engine.Compute("NVDA", bars, bench, asOf)
	assert.ErrorIs(t, err, contracts.ErrStaleHistory)
}

func TestCompute_ShortHistorySkipped(t *testing.T) {
	engine := NewEngine(logger.NewNop())
	bars := flatBars(100, 100) // below EMA200 requirement
	bench := map[time.Time]float64{}
	for _, b := range bars {
		bench[dateKey(b.Date)] = 400
	}

	_, err := engine.Compute("NVDA", bars, bench, bars[len(bars)-1].Date)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientHistory))
	assert.True(t, contracts.IsSkip(err))
}
