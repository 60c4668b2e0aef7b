package contracts

import "time"

// Bar is one daily OHLCV record for a single ticker. Bars are owned by
// the market data source and read-only inside the scan pipeline.
type Bar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"` // midnight UTC
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day normalizes a timestamp to midnight UTC so bar dates compare
// exactly regardless of the source's time component.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same UTC date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
