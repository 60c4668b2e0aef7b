package contracts

import (
	"context"
	"time"
)

// UniverseProvider returns the ticker symbols to scan. Implementations
// must return a deduplicated, ordered list. Constructor-injected so a
// scan never depends on package-level caches.
type UniverseProvider interface {
	Tickers(ctx context.Context) ([]string, error)
}

// MarketDataSource supplies daily bars. Bars arrive in ascending date
// order per ticker; gaps are never inferred or filled by the pipeline.
type MarketDataSource interface {
	FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// GroupedSource is implemented by sources that can return every
// ticker's bar for one date in a single call. The orchestrator prefers
// it when available to keep request counts proportional to dates, not
// dates x tickers.
type GroupedSource interface {
	FetchGrouped(ctx context.Context, date time.Time) ([]Bar, error)
}
