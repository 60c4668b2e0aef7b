// Package commands wires the CLI together.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/marketdata"
	"github.com/dmarsh/strider/internal/scanconfig"
	"github.com/dmarsh/strider/internal/universe"
	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/httputil"
	"github.com/dmarsh/strider/pkg/logger"
)

var (
	paramsFile   string
	tickersFlag  string
	tickersFile  string
	listingsFlag string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "strider",
	Short: "Daily gap pattern scanner for US equities",
	Long: `Strider scans daily OHLCV history for a gap continuation setup:
a consolidation day near the low of its trailing range, followed by a
decisive gap up. It fetches bars from a daily-aggregates provider,
filters the universe cheaply, and runs the full detector only on the
survivors.

Examples:
  strider scan --d0-start 2026-01-05 --d0-end 2026-01-09 --tickers AAPL,MSFT
  strider api
  strider schedule`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "scan parameter YAML file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&tickersFlag, "tickers", "", "comma-separated ticker universe")
	rootCmd.PersistentFlags().StringVar(&tickersFile, "tickers-file", "", "file with one ticker per line")
	rootCmd.PersistentFlags().StringVar(&listingsFlag, "listings-urls", "", "comma-separated exchange listing pages to scrape for the universe")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func newLogger(cfg *config.Config) *logger.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:  level,
		Format: cfg.LogFormat,
	})
}

func loadParams() (scanconfig.Params, error) {
	if paramsFile == "" {
		return scanconfig.Default(), nil
	}
	return scanconfig.Load(paramsFile)
}

// resolveUniverse builds the ticker provider. An explicit list wins
// over a file, and both win over listing pages; with none of those,
// LISTING_URLS from the environment is the last resort.
func resolveUniverse(cfg *config.Config, log *logger.Logger) (contracts.UniverseProvider, error) {
	if tickersFlag != "" {
		return universe.NewStatic(strings.Split(tickersFlag, ",")), nil
	}
	if tickersFile != "" {
		data, err := os.ReadFile(tickersFile)
		if err != nil {
			return nil, fmt.Errorf("read tickers file: %w", err)
		}
		return universe.NewStatic(strings.Fields(string(data))), nil
	}
	urls := splitListings(listingsFlag)
	if len(urls) == 0 {
		urls = cfg.ListingURLs
	}
	if len(urls) > 0 {
		client := httputil.New(30*time.Second, log)
		return universe.NewScraper(urls, client, log), nil
	}
	return nil, fmt.Errorf("no universe: pass --tickers, --tickers-file, --listings-urls, or set LISTING_URLS")
}

func splitListings(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// perTickerSource hides the grouped endpoint so the orchestrator uses
// one request per ticker. Cheaper for small explicit universes.
type perTickerSource struct {
	client *marketdata.Client
}

func (s perTickerSource) FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]contracts.Bar, error) {
	return s.client.FetchBars(ctx, ticker, start, end)
}

func newDataSource(cfg *config.Config, log *logger.Logger, grouped bool) contracts.MarketDataSource {
	client := marketdata.NewClient(cfg.MarketData, log)
	if grouped {
		return client
	}
	return perTickerSource{client: client}
}
