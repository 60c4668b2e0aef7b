// Package features computes per-ticker windowed indicators in two
// tiers: a cheap simple pass feeding the prefilter, and a full pass for
// survivors. Every indicator at date D uses only bars dated <= D, and
// "previous day" values strictly use dates < D. A ticker's rows never
// read another ticker's bars.
package features

import (
	"fmt"

	"github.com/dmarsh/strider/internal/contracts"
)

// Config fixes the rolling-window lengths for one run. Window lengths
// are scan parameters, not constants: deployments disagree on 10 vs 14
// period ATR and on how many recent days the range position excludes.
type Config struct {
	ATRPeriod    int // true-range mean window
	VolAvgPeriod int // rolling volume average window
	SlopeWindow  int // bars between EMA9 slope endpoints
	RangeWindow  int // trailing close-range window for position
	RangeExclude int // most recent days excluded from the range window
}

// MinHistory returns the longest warm-up any indicator needs. A
// historical buffer shorter than this leaves early D0 dates with
// undefined indicators, which the gates then exclude.
func (c Config) MinHistory() int {
	n := c.ATRPeriod
	if c.VolAvgPeriod > n {
		n = c.VolAvgPeriod
	}
	if v := emaLongPeriod - 1; v > n {
		n = v
	}
	if v := emaShortPeriod - 1 + c.SlopeWindow; v > n {
		n = v
	}
	if v := c.RangeWindow + c.RangeExclude - 1; v > n {
		n = v
	}
	return n
}

const (
	emaShortPeriod = 9
	emaLongPeriod  = 20
)

// ComputeSimple derives the prefilter fields in one O(n) pass. Bars
// must belong to a single ticker and be in ascending date order.
func ComputeSimple(bars []contracts.Bar) ([]Row, error) {
	if err := checkSeries(bars); err != nil {
		return nil, err
	}

	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{
			Bar:          b,
			PrevClose:    undef(),
			DollarVolume: b.Close * b.Volume,
			Range:        b.High - b.Low,
		}
		if i > 0 {
			rows[i].PrevClose = bars[i-1].Close
		}
	}
	return rows, nil
}

// ComputeFull derives every indicator for one ticker's complete series
// (historical buffer plus D0 window). Rolling windows use running sums
// and monotonic deques, so the pass stays O(n).
func ComputeFull(bars []contracts.Bar, cfg Config) ([]Row, error) {
	rows, err := ComputeSimple(bars)
	if err != nil {
		return nil, err
	}

	computeTrueRange(rows)
	computeShiftedMean(rows, cfg.ATRPeriod, func(r *Row) float64 { return r.TrueRange }, func(r *Row, v float64) { r.ATR = v })
	computeShiftedMean(rows, cfg.VolAvgPeriod, func(r *Row) float64 { return r.Volume }, func(r *Row, v float64) { r.VolAvg = v })
	computeEMAs(rows, cfg.SlopeWindow)
	computeRangePos(rows, cfg.RangeWindow, cfg.RangeExclude)

	for i := range rows {
		r := &rows[i]

		r.RelVolume = undef()
		if Defined(r.VolAvg) && r.VolAvg > 0 {
			r.RelVolume = r.Volume / r.VolAvg
		}

		r.GapDivATR = undef()
		r.GapPct = undef()
		if Defined(r.PrevClose) && r.PrevClose > 0 {
			r.GapPct = r.Open/r.PrevClose - 1
			if Defined(r.ATR) && r.ATR > 0 {
				r.GapDivATR = (r.Open - r.PrevClose) / r.ATR
			}
		}

		r.BodyDivATR = undef()
		if Defined(r.ATR) && r.ATR > 0 {
			r.BodyDivATR = (r.Close - r.Open) / r.ATR
		}

		r.BodyRange = undef()
		if r.Range > 0 {
			body := r.Close - r.Open
			if body < 0 {
				body = -body
			}
			r.BodyRange = body / r.Range
		}
	}
	return rows, nil
}

// checkSeries rejects mixed-ticker or unordered input before any math
// runs on it.
func checkSeries(bars []contracts.Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Ticker != bars[0].Ticker {
			return fmt.Errorf("mixed tickers in series: %s and %s", bars[0].Ticker, bars[i].Ticker)
		}
		if !bars[i].Date.After(bars[i-1].Date) {
			return fmt.Errorf("bars out of order at %s: %s !> %s",
				bars[i].Ticker, bars[i].Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// computeTrueRange fills TR. The first bar has no prior close, so its
// TR is the plain high-low range (Wilder's convention).
func computeTrueRange(rows []Row) {
	for i := range rows {
		r := &rows[i]
		tr := r.High - r.Low
		if i > 0 {
			pc := rows[i-1].Close
			if hp := abs(r.High - pc); hp > tr {
				tr = hp
			}
			if lp := abs(r.Low - pc); lp > tr {
				tr = lp
			}
		}
		r.TrueRange = tr
	}
}

// computeShiftedMean fills a rolling mean over the previous period
// values, excluding the current bar. Row i sees the mean of rows
// [i-period, i-1]; rows with fewer than period predecessors stay NaN.
func computeShiftedMean(rows []Row, period int, get func(*Row) float64, set func(*Row, float64)) {
	var sum float64
	for i := range rows {
		if i >= period {
			set(&rows[i], sum/float64(period))
			sum -= get(&rows[i-period])
		} else {
			set(&rows[i], undef())
		}
		sum += get(&rows[i])
	}
}

// computeEMAs fills EMA9/EMA20 and the EMA9 slope. Each EMA is seeded
// once from the first close of the series and never re-seeded at the
// D0 boundary; it is published only after a full period of warm-up.
func computeEMAs(rows []Row, slopeWindow int) {
	if len(rows) == 0 {
		return
	}

	kShort := 2.0 / float64(emaShortPeriod+1)
	kLong := 2.0 / float64(emaLongPeriod+1)
	emaShort := rows[0].Close
	emaLong := rows[0].Close

	// Raw EMA values kept so the slope can reach back before the
	// publication threshold of the endpoint row.
	raw := make([]float64, len(rows))

	for i := range rows {
		if i > 0 {
			emaShort = rows[i].Close*kShort + emaShort*(1-kShort)
			emaLong = rows[i].Close*kLong + emaLong*(1-kLong)
		}
		raw[i] = emaShort

		rows[i].EMA9 = undef()
		if i >= emaShortPeriod-1 {
			rows[i].EMA9 = emaShort
		}
		rows[i].EMA20 = undef()
		if i >= emaLongPeriod-1 {
			rows[i].EMA20 = emaLong
		}
	}

	for i := range rows {
		rows[i].EMA9Slope = undef()
		j := i - slopeWindow
		if slopeWindow > 0 && j >= emaShortPeriod-1 && Defined(rows[i].EMA9) {
			rows[i].EMA9Slope = (rows[i].EMA9 - raw[j]) / float64(slopeWindow)
		}
	}
}

// computeRangePos fills each row's close position inside the trailing
// close range, excluding the most recent exclude days (the current row
// counts as one of them). Uses monotonic deques for O(n) sliding
// min/max.
func computeRangePos(rows []Row, window, exclude int) {
	if window <= 0 {
		for i := range rows {
			rows[i].RangePos = undef()
		}
		return
	}

	// Deques hold indexes into rows; front is the extreme of the
	// current window [i-exclude-window+1, i-exclude].
	var maxDQ, minDQ []int

	push := func(j int) {
		c := rows[j].Close
		for len(maxDQ) > 0 && rows[maxDQ[len(maxDQ)-1]].Close <= c {
			maxDQ = maxDQ[:len(maxDQ)-1]
		}
		maxDQ = append(maxDQ, j)
		for len(minDQ) > 0 && rows[minDQ[len(minDQ)-1]].Close >= c {
			minDQ = minDQ[:len(minDQ)-1]
		}
		minDQ = append(minDQ, j)
	}

	for i := range rows {
		rows[i].RangePos = undef()

		hi := i - exclude // newest index inside the window
		lo := hi - window + 1
		if hi >= 0 {
			push(hi)
		}
		if lo < 0 {
			continue
		}
		for len(maxDQ) > 0 && maxDQ[0] < lo {
			maxDQ = maxDQ[1:]
		}
		for len(minDQ) > 0 && minDQ[0] < lo {
			minDQ = minDQ[1:]
		}
		if len(maxDQ) == 0 || len(minDQ) == 0 {
			continue
		}

		maxC := rows[maxDQ[0]].Close
		minC := rows[minDQ[0]].Close
		if maxC <= minC {
			continue // flat window, position undefined
		}
		rows[i].RangePos = (rows[i].Close - minC) / (maxC - minC)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
