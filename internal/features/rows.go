package features

import (
	"math"

	"github.com/dmarsh/strider/internal/contracts"
)

// Row is a Bar plus derived indicators for one (ticker, date). The
// simple tier fills only what the prefilter needs; the full tier fills
// everything. An indicator without enough history is NaN, and every
// gate that reads NaN fails — undefined never becomes zero.
type Row struct {
	contracts.Bar

	// Simple tier.
	PrevClose    float64
	DollarVolume float64
	Range        float64

	// Full tier. ATR and VolAvg are shifted one bar: the value at date
	// D summarizes strictly earlier dates, so "today" never sees its
	// own high, low, or volume.
	TrueRange  float64
	ATR        float64
	EMA9       float64
	EMA20      float64
	EMA9Slope  float64
	VolAvg     float64
	RelVolume  float64
	GapDivATR  float64
	GapPct     float64
	BodyDivATR float64
	BodyRange  float64
	RangePos   float64
}

// Defined reports whether an indicator value is usable.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func undef() float64 { return math.NaN() }
