// Package prefilter implements the cheap first-pass predicate that
// shrinks the ticker set before full feature computation. It reads only
// simple-tier rows inside the D0 window; a ticker with no passing D0
// row is dropped entirely, historical rows included.
package prefilter

import (
	"sort"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/features"
)

// Thresholds are the prefilter's knobs. Zero values disable the
// corresponding check, so defaults are maximally permissive and any
// tightening can only shrink the surviving set.
type Thresholds struct {
	PriceMin     float64 // close floor
	PriceMax     float64 // close ceiling, 0 = unbounded
	DollarVolMin float64 // close * volume floor
	ShareVolMin  float64 // absolute share volume floor
}

// Result reports what the filter kept and why tickers were dropped.
type Result struct {
	Rows    map[string][]features.Row // survivors, complete series preserved
	Dropped map[string]string         // ticker -> reason
}

// Survivors returns the surviving tickers in ascending order.
func (r Result) Survivors() []string {
	out := make([]string, 0, len(r.Rows))
	for t := range r.Rows {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Apply evaluates the row predicate on each ticker's D0-window rows.
// The full series of every surviving ticker passes through untouched;
// later stages need the historical rows for indicator warm-up.
func Apply(rows map[string][]features.Row, window contracts.ScanWindow, th Thresholds) Result {
	res := Result{
		Rows:    make(map[string][]features.Row, len(rows)),
		Dropped: make(map[string]string),
	}

	for ticker, series := range rows {
		passing := 0
		sawD0 := false
		for i := range series {
			if !window.InD0(series[i].Date) {
				continue
			}
			sawD0 = true
			if passes(&series[i], th) {
				passing++
			}
		}
		switch {
		case !sawD0:
			res.Dropped[ticker] = "no bars in D0 window"
		case passing == 0:
			res.Dropped[ticker] = "no D0 row passed the prefilter"
		default:
			res.Rows[ticker] = series
		}
	}
	return res
}

// passes is the row predicate. Each clause is a floor or ceiling, so
// the conjunction is monotonic: tightening any threshold can only turn
// passes into failures.
func passes(r *features.Row, th Thresholds) bool {
	if th.PriceMin > 0 && r.Close < th.PriceMin {
		return false
	}
	if th.PriceMax > 0 && r.Close > th.PriceMax {
		return false
	}
	if th.DollarVolMin > 0 && r.DollarVolume < th.DollarVolMin {
		return false
	}
	if th.ShareVolMin > 0 && r.Volume < th.ShareVolMin {
		return false
	}
	return true
}
