// Package scan wires the staged pipeline together: trading dates, bar
// acquisition, the simple-feature prefilter, full feature computation,
// and pattern detection, ending in one merged ScanResult.
package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmarsh/strider/internal/calendar"
	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/features"
	"github.com/dmarsh/strider/internal/parallel"
	"github.com/dmarsh/strider/internal/pattern"
	"github.com/dmarsh/strider/internal/prefilter"
	"github.com/dmarsh/strider/internal/scanconfig"
	"github.com/dmarsh/strider/pkg/logger"
)

// Options tunes orchestration, not semantics: any worker count yields
// the identical ScanResult.
type Options struct {
	Workers int
}

// Orchestrator runs scans against an injected universe and data source.
// When the source also implements contracts.GroupedSource, acquisition
// is one request per trading date instead of one per ticker.
type Orchestrator struct {
	universe contracts.UniverseProvider
	source   contracts.MarketDataSource
	workers  int
	logger   *logger.Logger
}

func New(universe contracts.UniverseProvider, source contracts.MarketDataSource, opts Options, log *logger.Logger) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	return &Orchestrator{
		universe: universe,
		source:   source,
		workers:  workers,
		logger:   log.WithField("module", "scan"),
	}
}

// Scan executes one full run. Configuration problems surface as a
// *contracts.ConfigError before any data is touched. Per-ticker and
// per-date failures never abort the run; they come back inside the
// ScanResult.
func (o *Orchestrator) Scan(ctx context.Context, window contracts.ScanWindow, params scanconfig.Params) (*contracts.ScanResult, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	dates, err := calendar.TradingDates(window.HistoricalStart, window.D0End)
	if err != nil {
		return nil, err
	}

	tickers, err := o.universe.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve universe: %w", err)
	}

	result := &contracts.ScanResult{
		Signals:      []contracts.Signal{},
		TickerErrors: make(map[string]string),
		DateErrors:   make(map[string]string),
	}
	if len(tickers) == 0 {
		o.logger.Warn("Universe is empty, nothing to scan")
		return result, nil
	}

	o.logger.WithFields(map[string]interface{}{
		"tickers":          len(tickers),
		"trading_days":     len(dates),
		"historical_start": window.HistoricalStart.Format("2006-01-02"),
		"d0_start":         window.D0Start.Format("2006-01-02"),
		"d0_end":           window.D0End.Format("2006-01-02"),
		"workers":          o.workers,
	}).Info("Starting scan")

	bars := o.acquire(ctx, tickers, dates, window, result)

	// Simple tier plus prefilter. A ticker whose series is malformed is
	// a per-ticker failure; a ticker the filter drops is not.
	simple := o.computeSimple(ctx, bars, result)
	filtered := prefilter.Apply(simple, window, params.PrefilterThresholds())
	o.logger.WithFields(map[string]interface{}{
		"survivors": len(filtered.Rows),
		"dropped":   len(filtered.Dropped),
	}).Info("Prefilter applied")

	o.detect(ctx, filtered.Survivors(), bars, window, params, result)

	contracts.SortSignals(result.Signals)
	o.logger.WithFields(map[string]interface{}{
		"signals":       len(result.Signals),
		"ticker_errors": len(result.TickerErrors),
		"date_errors":   len(result.DateErrors),
	}).Info("Scan completed")
	return result, nil
}

// acquire fetches every ticker's bars for the window, preferring one
// grouped request per trading date when the source supports it. Units
// that fail are recorded and skipped.
func (o *Orchestrator) acquire(ctx context.Context, tickers []string, dates []time.Time, window contracts.ScanWindow, result *contracts.ScanResult) map[string][]contracts.Bar {
	if grouped, ok := o.source.(contracts.GroupedSource); ok {
		return o.acquireGrouped(ctx, grouped, tickers, dates, result)
	}
	return o.acquirePerTicker(ctx, tickers, window, result)
}

func (o *Orchestrator) acquirePerTicker(ctx context.Context, tickers []string, window contracts.ScanWindow, result *contracts.ScanResult) map[string][]contracts.Bar {
	results, counts := parallel.Run(ctx, parallel.Config{Workers: o.workers}, o.logger, tickers,
		func(ctx context.Context, ticker string) ([]contracts.Bar, error) {
			bars, err := o.source.FetchBars(ctx, ticker, window.HistoricalStart, window.D0End)
			if err != nil {
				return nil, &contracts.AcquisitionError{Unit: ticker, Err: err}
			}
			return bars, nil
		})
	addCounts(&result.Counts, counts)

	out := make(map[string][]contracts.Bar, len(tickers))
	for _, r := range results {
		if r.Err != nil {
			result.TickerErrors[r.Unit] = r.Err.Error()
			continue
		}
		if len(r.Value) > 0 {
			out[r.Unit] = r.Value
		}
	}
	return out
}

func (o *Orchestrator) acquireGrouped(ctx context.Context, source contracts.GroupedSource, tickers []string, dates []time.Time, result *contracts.ScanResult) map[string][]contracts.Bar {
	inUniverse := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		inUniverse[t] = true
	}

	results, counts := parallel.Run(ctx, parallel.Config{Workers: o.workers}, o.logger, dates,
		func(ctx context.Context, date time.Time) ([]contracts.Bar, error) {
			bars, err := source.FetchGrouped(ctx, date)
			if err != nil {
				return nil, &contracts.AcquisitionError{Unit: date.Format("2006-01-02"), Err: err}
			}
			return bars, nil
		})
	addCounts(&result.Counts, counts)

	// Pool results come back in submission order and dates ascend, so
	// appending preserves each ticker's date order.
	out := make(map[string][]contracts.Bar, len(tickers))
	for _, r := range results {
		if r.Err != nil {
			result.DateErrors[r.Unit.Format("2006-01-02")] = r.Err.Error()
			continue
		}
		for _, bar := range r.Value {
			if inUniverse[bar.Ticker] {
				out[bar.Ticker] = append(out[bar.Ticker], bar)
			}
		}
	}
	return out
}

// computeSimple runs the cheap feature tier over every acquired series.
// Like the other stages it goes through the pool, so malformed series
// show up in Counts as failed units, not just in TickerErrors.
func (o *Orchestrator) computeSimple(ctx context.Context, bars map[string][]contracts.Bar, result *contracts.ScanResult) map[string][]features.Row {
	tickers := make([]string, 0, len(bars))
	for ticker := range bars {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	results, counts := parallel.Run(ctx, parallel.Config{Workers: o.workers}, o.logger, tickers,
		func(_ context.Context, ticker string) ([]features.Row, error) {
			rows, err := features.ComputeSimple(bars[ticker])
			if err != nil {
				return nil, &contracts.ComputationError{Ticker: ticker, Err: err}
			}
			return rows, nil
		})
	addCounts(&result.Counts, counts)

	simple := make(map[string][]features.Row, len(bars))
	for _, r := range results {
		if r.Err != nil {
			result.TickerErrors[r.Unit] = r.Err.Error()
			continue
		}
		simple[r.Unit] = r.Value
	}
	return simple
}

// detect runs full feature computation and the pattern detector for
// each prefilter survivor.
func (o *Orchestrator) detect(ctx context.Context, survivors []string, bars map[string][]contracts.Bar, window contracts.ScanWindow, params scanconfig.Params, result *contracts.ScanResult) {
	detector := pattern.New(params)
	featureCfg := params.FeatureConfig()

	results, counts := parallel.Run(ctx, parallel.Config{Workers: o.workers}, o.logger, survivors,
		func(_ context.Context, ticker string) ([]contracts.Signal, error) {
			rows, err := features.ComputeFull(bars[ticker], featureCfg)
			if err != nil {
				return nil, &contracts.ComputationError{Ticker: ticker, Err: err}
			}
			return detector.Detect(rows, window), nil
		})
	addCounts(&result.Counts, counts)

	for _, r := range results {
		if r.Err != nil {
			result.TickerErrors[r.Unit] = r.Err.Error()
			continue
		}
		result.Signals = append(result.Signals, r.Value...)
	}
}

func addCounts(dst *contracts.Counts, add contracts.Counts) {
	dst.Submitted += add.Submitted
	dst.Succeeded += add.Succeeded
	dst.Failed += add.Failed
}
