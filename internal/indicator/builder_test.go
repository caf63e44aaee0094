package indicator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

// fakeBarRepo serves canned histories keyed by symbol.
type fakeBarRepo struct {
	bars map[string][]contracts.PriceBar
}

func (f *fakeBarRepo) LoadBars(_ context.Context, symbol string, _ time.Time, maxCount int) ([]contracts.PriceBar, error) {
	bars := f.bars[symbol]
	if len(bars) > maxCount {
		bars = bars[len(bars)-maxCount:]
	}
	return bars, nil
}

func (f *fakeBarRepo) GetLatest(_ context.Context, symbol string) (*contracts.PriceBar, error) {
	bars := f.bars[symbol]
	if len(bars) == 0 {
		return nil, nil
	}
	b := bars[len(bars)-1]
	return &b, nil
}

func (f *fakeBarRepo) SaveBatch(_ context.Context, bars []contracts.PriceBar) error {
	for _, b := range bars {
		f.bars[b.Symbol] = append(f.bars[b.Symbol], b)
	}
	return nil
}

func trendingBars(symbol string, n int, start float64) []contracts.PriceBar {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, n)
	price := start
	for i := 0; i < n; i++ {
		price *= 1.002
		bars[i] = contracts.PriceBar{
			Symbol: symbol,
			Date:   day.AddDate(0, 0, i),
			Open:   price * 0.99,
			High:   price * 1.02,
			Low:    price * 0.97,
			Close:  price,
			Volume: int64(1000 + 13*i),
		}
	}
	return bars
}

func TestBuilder_Build(t *testing.T) {
	repo := &fakeBarRepo{bars: map[string][]contracts.PriceBar{
		"AAPL": trendingBars("AAPL", 240, 150),
		"MSFT": trendingBars("MSFT", 240, 300),
		"IPO":  trendingBars("IPO", 30, 20), // too young for EMA200
		"SPY":  trendingBars("SPY", 240, 400),
	}}

	builder := NewBuilder(NewEngine(logger.NewNop()), repo, logger.NewNop())

	asOf := repo.bars["AAPL"][239].Date
	result, err := builder.Build(context.Background(), []string{"AAPL", "MSFT", "IPO"}, "SPY", asOf)
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "AAPL", result.Rows[0].Symbol, "rows sorted by symbol")
	assert.Equal(t, "MSFT", result.Rows[1].Symbol)

	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped, "IPO")
}

func TestBuilder_Build_NoBenchmark(t *testing.T) {
	repo := &fakeBarRepo{bars: map[string][]contracts.PriceBar{
		"AAPL": trendingBars("AAPL", 240, 150),
	}}

	builder := NewBuilder(NewEngine(logger.NewNop()), repo, logger.NewNop())

	asOf := repo.bars["AAPL"][239].Date
	result, err := builder.Build(context.Background(), []string{"AAPL"}, "SPY", asOf)
	require.NoError(t, err)

	// RS needs the benchmark: everything skips, nothing fails
	assert.Empty(t, result.Rows)
	assert.Len(t, result.Skipped, 1)
}
