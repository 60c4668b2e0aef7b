package contracts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestScanWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		window  ScanWindow
		wantErr bool
	}{
		{
			name:   "normal window",
			window: ScanWindow{HistoricalStart: day("2025-06-02"), D0Start: day("2026-01-02"), D0End: day("2026-02-27")},
		},
		{
			name:   "no lookback buffer is legal",
			window: ScanWindow{HistoricalStart: day("2026-01-02"), D0Start: day("2026-01-02"), D0End: day("2026-02-27")},
		},
		{
			name:    "historical after d0 start",
			window:  ScanWindow{HistoricalStart: day("2026-01-05"), D0Start: day("2026-01-02"), D0End: day("2026-02-27")},
			wantErr: true,
		},
		{
			name:    "d0 start after d0 end",
			window:  ScanWindow{HistoricalStart: day("2025-06-02"), D0Start: day("2026-03-02"), D0End: day("2026-02-27")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.wantErr {
				var cfgErr *ConfigError
				require.Error(t, err)
				assert.True(t, errors.As(err, &cfgErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScanWindow_InD0(t *testing.T) {
	w := ScanWindow{
		HistoricalStart: day("2025-06-02"),
		D0Start:         day("2026-01-02"),
		D0End:           day("2026-01-30"),
	}

	assert.False(t, w.InD0(day("2025-12-31")), "buffer date must not be in D0")
	assert.True(t, w.InD0(day("2026-01-02")), "inclusive start")
	assert.True(t, w.InD0(day("2026-01-30")), "inclusive end")
	assert.False(t, w.InD0(day("2026-02-02")))

	// A timestamp with a time component still matches its date.
	assert.True(t, w.InD0(day("2026-01-15").Add(21*time.Hour)))
}

func TestSortSignals(t *testing.T) {
	signals := []Signal{
		{Ticker: "MSFT", Date: day("2026-01-10")},
		{Ticker: "AAPL", Date: day("2026-01-12")},
		{Ticker: "AAPL", Date: day("2026-01-10")},
		{Ticker: "NVDA", Date: day("2026-01-12")},
	}

	SortSignals(signals)

	want := []struct {
		ticker string
		date   string
	}{
		{"AAPL", "2026-01-12"},
		{"NVDA", "2026-01-12"},
		{"AAPL", "2026-01-10"},
		{"MSFT", "2026-01-10"},
	}
	for i, w := range want {
		assert.Equal(t, w.ticker, signals[i].Ticker, "index %d", i)
		assert.Equal(t, day(w.date), signals[i].Date, "index %d", i)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection reset")

	acq := &AcquisitionError{Unit: "AAPL", Err: cause}
	assert.ErrorIs(t, acq, cause)
	assert.Contains(t, acq.Error(), "AAPL")

	comp := &ComputationError{Ticker: "MSFT", Err: cause}
	assert.ErrorIs(t, comp, cause)

	cfg := &ConfigError{Field: "trigger_mode", Message: "unknown value"}
	assert.Contains(t, cfg.Error(), "trigger_mode")
}
