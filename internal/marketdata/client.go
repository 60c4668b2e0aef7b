// Package marketdata fetches daily OHLCV bars from a Polygon-style
// aggregates REST API. It implements both per-ticker range fetches and
// grouped whole-market fetches for a single date.
package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/httputil"
	"github.com/dmarsh/strider/pkg/logger"
)

// Client talks to the aggregates API. It satisfies both
// contracts.MarketDataSource and contracts.GroupedSource.
type Client struct {
	baseURL string
	apiKey  string
	http    *httputil.Client
	logger  *logger.Logger
}

func NewClient(cfg config.MarketDataConfig, log *logger.Logger) *Client {
	httpClient := httputil.New(cfg.RequestTimeout, log).
		WithRateLimit(cfg.RatePerSecond, cfg.RateBurst)
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  log.WithField("module", "marketdata"),
	}
}

// aggBar is one bar in the provider's wire format. Timestamps are Unix
// milliseconds at the start of the session. The ticker field is only
// present in grouped responses.
type aggBar struct {
	Ticker    string  `json:"T,omitempty"`
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type aggResponse struct {
	Ticker       string   `json:"ticker"`
	Status       string   `json:"status"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
}

// FetchBars returns the ticker's daily bars for [start, end] in
// ascending date order.
func (c *Client) FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]contracts.Bar, error) {
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		c.baseURL, url.PathEscape(ticker),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		url.QueryEscape(c.apiKey))

	var resp aggResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	if resp.Status != "OK" && resp.Status != "DELAYED" {
		return nil, fmt.Errorf("fetch bars for %s: provider status %q", ticker, resp.Status)
	}

	bars := make([]contracts.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, toBar(ticker, r))
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(bars),
	}).Debug("Fetched ticker bars")
	return bars, nil
}

// FetchGrouped returns every ticker's bar for one trading date. A date
// with no session data yields an empty slice, not an error.
func (c *Client) FetchGrouped(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
	day := date.Format("2006-01-02")
	u := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s?adjusted=true&apiKey=%s",
		c.baseURL, day, url.QueryEscape(c.apiKey))

	var resp aggResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch grouped bars for %s: %w", day, err)
	}
	if resp.Status != "OK" && resp.Status != "DELAYED" {
		return nil, fmt.Errorf("fetch grouped bars for %s: provider status %q", day, resp.Status)
	}

	bars := make([]contracts.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Ticker == "" {
			continue
		}
		bars = append(bars, toBar(r.Ticker, r))
	}

	c.logger.WithFields(map[string]interface{}{
		"date": day,
		"bars": len(bars),
	}).Debug("Fetched grouped bars")
	return bars, nil
}

func toBar(ticker string, r aggBar) contracts.Bar {
	return contracts.Bar{
		Ticker: ticker,
		Date:   contracts.Day(time.UnixMilli(r.Timestamp).UTC()),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}
