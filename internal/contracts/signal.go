package contracts

import (
	"sort"
	"time"
)

// TriggerTag names the trading day that anchored a pattern.
const (
	TriggerD1 = "D-1"
	TriggerD2 = "D-2"
)

// Diagnostics carries the numeric values behind a signal's gates so a
// reviewer can see why it fired, not just that it fired.
type Diagnostics struct {
	RangePos      float64 `json:"range_pos"`       // D-1 close position in trailing range
	TriggerATRMul float64 `json:"trigger_atr_mul"` // trigger-day true range / ATR
	TriggerRelVol float64 `json:"trigger_rel_vol"` // trigger-day volume / rolling avg
	TriggerSlope  float64 `json:"trigger_slope"`   // EMA9 slope at trigger day
	BodyDivATR    float64 `json:"body_div_atr"`    // trigger-day green body / ATR
	GapDivATR     float64 `json:"gap_div_atr"`     // D0 gap / ATR
	GapPct        float64 `json:"gap_pct"`         // D0 open vs prior close
	OpenDivEMA9   float64 `json:"open_div_ema9"`   // D0 open / EMA9
}

// Signal is one qualifying (ticker, date) produced by the pattern
// detector. Created once, read-only afterwards.
type Signal struct {
	Ticker      string      `json:"ticker"`
	Date        time.Time   `json:"date"`
	TriggerTag  string      `json:"trigger_tag"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Counts summarizes work-unit outcomes across a run.
type Counts struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ScanResult is the terminal artifact of one scan run. Partial failures
// are data here, never silently dropped: each failed ticker or
// acquisition date keeps its error message.
type ScanResult struct {
	Signals      []Signal          `json:"signals"`
	TickerErrors map[string]string `json:"ticker_errors,omitempty"`
	DateErrors   map[string]string `json:"date_errors,omitempty"`
	Counts       Counts            `json:"counts"`
}

// SortSignals orders signals by date descending, ticker ascending. The
// orchestrator applies it once at merge so results are deterministic.
func SortSignals(signals []Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].Date.Equal(signals[j].Date) {
			return signals[i].Date.After(signals[j].Date)
		}
		return signals[i].Ticker < signals[j].Ticker
	})
}
