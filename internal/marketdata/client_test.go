package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MarketDataConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
	}, logger.Nop())
}

func TestFetchBars(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{
			"ticker": "AAPL",
			"status": "OK",
			"resultsCount": 2,
			"results": [
				{"t": 1767657600000, "o": 10.1, "h": 10.5, "l": 9.9, "c": 10.3, "v": 1200000},
				{"t": 1767744000000, "o": 10.3, "h": 10.8, "l": 10.2, "c": 10.7, "v": 1500000}
			]
		}`))
	})

	start := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchBars(context.Background(), "AAPL", start, end)
	require.NoError(t, err)

	assert.Equal(t, "/v2/aggs/ticker/AAPL/range/1/day/2026-01-06/2026-01-07", gotPath)
	assert.Contains(t, gotQuery, "apiKey=test-key")
	assert.Contains(t, gotQuery, "sort=asc")

	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Ticker)
	assert.Equal(t, start, bars[0].Date)
	assert.Equal(t, 10.1, bars[0].Open)
	assert.Equal(t, 10.3, bars[0].Close)
	assert.Equal(t, 1.2e6, bars[0].Volume)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
}

func TestFetchBars_BadProviderStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "ERROR", "results": []}`))
	})

	_, err := client.FetchBars(context.Background(), "AAPL", time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider status "ERROR"`)
}

func TestFetchBars_EmptyRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ticker": "AAPL", "status": "OK", "resultsCount": 0}`))
	})

	bars, err := client.FetchBars(context.Background(), "AAPL", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFetchGrouped(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"status": "OK",
			"resultsCount": 2,
			"results": [
				{"T": "AAPL", "t": 1767657600000, "o": 10.1, "h": 10.5, "l": 9.9, "c": 10.3, "v": 1200000},
				{"T": "MSFT", "t": 1767657600000, "o": 50.0, "h": 51.0, "l": 49.5, "c": 50.5, "v": 900000},
				{"t": 1767657600000, "o": 1.0, "h": 1.0, "l": 1.0, "c": 1.0, "v": 10}
			]
		}`))
	})

	date := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchGrouped(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, "/v2/aggs/grouped/locale/us/market/stocks/2026-01-06", gotPath)

	// The tickerless row is dropped, not fabricated.
	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Ticker)
	assert.Equal(t, "MSFT", bars[1].Ticker)
	assert.Equal(t, date, bars[0].Date)
	assert.Equal(t, 50.5, bars[1].Close)
}
