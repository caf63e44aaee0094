package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mingkaili/ai-trading-signal-engine/internal/contracts"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/config"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/httputil"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client fetches daily OHLCV data from the CSV-over-HTTP provider.
// All outbound provider calls go through this client so the rate
// limiter covers every request.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	profileURL string
	limiter    *rate.Limiter
}

// NewClient creates a new market data client.
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.ProviderConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.BaseURL,
		profileURL: cfg.ProfileBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
	}
}

// FetchDailyBars fetches daily bars for a symbol over [from, to].
// Provider rows it cannot parse are dropped and counted, never fatal;
// a feed glitch on one row must not sink the whole history.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	fullURL := fmt.Sprintf("%s/?s=%s&d1=%s&d2=%s&i=d",
		c.baseURL,
		strings.ToLower(symbol),
		from.Format("20060102"),
		to.Format("20060102"),
	)

	resp, err := c.httpClient.GetWithHeaders(ctx, fullURL, map[string]string{
		"User-Agent": userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	bars, dropped := ParseDailyCSV(symbol, string(body))

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"count":   len(bars),
		"dropped": dropped,
	}).Debug("Fetched daily bars")

	return bars, nil
}

// ParseDailyCSV parses the provider's CSV body into price bars. Rows
// are date,open,high,low,close,volume with an optional header line.
// Malformed rows are dropped and counted in the second return value.
func ParseDailyCSV(symbol, body string) ([]contracts.PriceBar, int) {
	var bars []contracts.PriceBar
	dropped := 0

	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "date,") {
			continue // header
		}

		bar, ok := parseCSVRow(symbol, line)
		if !ok {
			dropped++
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, dropped
}

// parseCSVRow parses a single data row. A row is usable only when all
// six fields parse and the prices describe a valid bar.
func parseCSVRow(symbol, line string) (contracts.PriceBar, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return contracts.PriceBar{}, false
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(fields[0]))
	if err != nil {
		return contracts.PriceBar{}, false
	}

	nums := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return contracts.PriceBar{}, false
		}
		nums[i] = v
	}

	open, high, low, closePx, volume := nums[0], nums[1], nums[2], nums[3], nums[4]
	if closePx <= 0 || high < low || volume < 0 {
		return contracts.PriceBar{}, false
	}

	return contracts.PriceBar{
		Symbol: symbol,
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: int64(volume),
	}, true
}
