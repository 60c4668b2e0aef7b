package contracts

import "time"

// ScanWindow splits a scan's date range into the historical buffer and
// the D0 output window. The buffer [HistoricalStart, D0Start) exists
// only to warm up rolling indicators; signals may only be reported from
// [D0Start, D0End].
type ScanWindow struct {
	HistoricalStart time.Time `json:"historical_start"`
	D0Start         time.Time `json:"d0_start"`
	D0End           time.Time `json:"d0_end"`
}

// Validate checks window ordering. HistoricalStart == D0Start is legal
// (no lookback buffer); indicators then stay undefined for the early D0
// dates and no signal can fire there.
func (w ScanWindow) Validate() error {
	if w.HistoricalStart.After(w.D0Start) {
		return &ConfigError{Field: "scan_window.historical_start", Message: "must not be after d0_start"}
	}
	if w.D0Start.After(w.D0End) {
		return &ConfigError{Field: "scan_window.d0_start", Message: "must not be after d0_end"}
	}
	return nil
}

// InD0 reports whether a date lies inside the output window.
func (w ScanWindow) InD0(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(w.D0Start)) && !d.After(Day(w.D0End))
}
