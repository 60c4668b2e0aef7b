package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarsh/strider/internal/contracts"
)

// seriesBuilder constructs an ascending daily series for one ticker.
type seriesBuilder struct {
	ticker string
	date   time.Time
	bars   []contracts.Bar
}

func newSeries(ticker string) *seriesBuilder {
	return &seriesBuilder{
		ticker: ticker,
		date:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func (s *seriesBuilder) add(open, high, low, close, volume float64) *seriesBuilder {
	s.bars = append(s.bars, contracts.Bar{
		Ticker: s.ticker, Date: s.date,
		Open: open, High: high, Low: low, Close: close, Volume: volume,
	})
	s.date = s.date.AddDate(0, 0, 1)
	return s
}

// addFlat appends n identical bars with true range tr around a 10.00
// close.
func (s *seriesBuilder) addFlat(n int, tr, volume float64) *seriesBuilder {
	for i := 0; i < n; i++ {
		s.add(10, 10+tr/2, 10-tr/2, 10, volume)
	}
	return s
}

func defaultConfig() Config {
	return Config{ATRPeriod: 3, VolAvgPeriod: 3, SlopeWindow: 2, RangeWindow: 5, RangeExclude: 1}
}

func TestComputeSimple(t *testing.T) {
	bars := newSeries("AAPL").
		add(10, 11, 9, 10.5, 1_000_000).
		add(10.5, 12, 10, 11, 2_000_000).
		bars

	rows, err := ComputeSimple(bars)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.False(t, Defined(rows[0].PrevClose), "first bar has no prior close")
	assert.Equal(t, 10.5, rows[1].PrevClose)
	assert.Equal(t, 11.0*2_000_000, rows[1].DollarVolume)
	assert.Equal(t, 2.0, rows[1].Range)
}

func TestComputeSimple_RejectsBadSeries(t *testing.T) {
	mixed := newSeries("AAPL").add(10, 11, 9, 10, 1).bars
	other := newSeries("MSFT").add(10, 11, 9, 10, 1).bars
	_, err := ComputeSimple(append(mixed, other...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed tickers")

	dup := newSeries("AAPL").add(10, 11, 9, 10, 1).bars
	_, err = ComputeSimple(append(dup, dup...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
}

func TestComputeFull_ATRShiftedOneBar(t *testing.T) {
	// True ranges 1..6; closes flat so TR is always high-low.
	b := newSeries("AAPL")
	for tr := 1; tr <= 6; tr++ {
		b.addFlat(1, float64(tr), 1_000_000)
	}

	rows, err := ComputeFull(b.bars, defaultConfig())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.False(t, Defined(rows[i].ATR), "row %d has too little history", i)
	}
	assert.InDelta(t, 2.0, rows[3].ATR, 1e-12) // mean of 1,2,3
	assert.InDelta(t, 3.0, rows[4].ATR, 1e-12) // mean of 2,3,4 — excludes own TR of 5
	assert.InDelta(t, 4.0, rows[5].ATR, 1e-12)
}

func TestComputeFull_VolumeAvgShifted(t *testing.T) {
	b := newSeries("AAPL")
	for v := 1; v <= 6; v++ {
		b.addFlat(1, 1, float64(v))
	}

	rows, err := ComputeFull(b.bars, Config{ATRPeriod: 3, VolAvgPeriod: 2, SlopeWindow: 2, RangeWindow: 5, RangeExclude: 1})
	require.NoError(t, err)

	assert.False(t, Defined(rows[1].VolAvg))
	assert.InDelta(t, 1.5, rows[2].VolAvg, 1e-12)
	assert.InDelta(t, 4.5, rows[5].VolAvg, 1e-12)
	assert.InDelta(t, 6.0/4.5, rows[5].RelVolume, 1e-12)
}

func TestComputeFull_EMAWarmupAndSeeding(t *testing.T) {
	// Nine flat closes then a spike: EMA9 is seeded once at the series
	// start, so the spike moves it by exactly the smoothing factor.
	b := newSeries("AAPL").addFlat(9, 1, 1_000_000).add(10, 20.5, 10, 20, 1_000_000)

	rows, err := ComputeFull(b.bars, defaultConfig())
	require.NoError(t, err)

	assert.False(t, Defined(rows[7].EMA9), "EMA9 needs nine bars")
	assert.InDelta(t, 10.0, rows[8].EMA9, 1e-12)
	assert.InDelta(t, 12.0, rows[9].EMA9, 1e-12) // 20*0.2 + 10*0.8

	assert.False(t, Defined(rows[9].EMA20), "EMA20 needs twenty bars")
}

func TestComputeFull_EMA20DefinedAfterTwentyBars(t *testing.T) {
	b := newSeries("AAPL").addFlat(21, 1, 1_000_000)
	rows, err := ComputeFull(b.bars, defaultConfig())
	require.NoError(t, err)

	assert.False(t, Defined(rows[18].EMA20))
	assert.InDelta(t, 10.0, rows[19].EMA20, 1e-12)
	assert.InDelta(t, 10.0, rows[20].EMA20, 1e-12)
}

func TestComputeFull_RangePosition(t *testing.T) {
	b := newSeries("AAPL")
	for _, c := range []float64{1, 2, 3, 4, 5} {
		b.add(c, c+0.5, c-0.5, c, 1_000_000)
	}

	rows, err := ComputeFull(b.bars, Config{ATRPeriod: 2, VolAvgPeriod: 2, SlopeWindow: 1, RangeWindow: 3, RangeExclude: 1})
	require.NoError(t, err)

	// Row 4: window is closes[1..3] = {2,3,4}; own close 5 sits above
	// the trailing range and the position exceeds 1.
	assert.InDelta(t, 1.5, rows[4].RangePos, 1e-12)
	// Row 2: window would need closes[-1..1], not enough history.
	assert.False(t, Defined(rows[2].RangePos))
}

func TestComputeFull_FlatRangeUndefined(t *testing.T) {
	b := newSeries("AAPL").addFlat(12, 1, 1_000_000)
	rows, err := ComputeFull(b.bars, Config{ATRPeriod: 2, VolAvgPeriod: 2, SlopeWindow: 1, RangeWindow: 3, RangeExclude: 1})
	require.NoError(t, err)

	// Every close is 10.00: max == min, position must be undefined
	// rather than zero-filled.
	for i := 4; i < len(rows); i++ {
		assert.False(t, Defined(rows[i].RangePos), "row %d", i)
	}
}

func TestComputeFull_GapMetrics(t *testing.T) {
	// Flat $10 bars with TR 0.5, then a gap open at 11.50.
	b := newSeries("AAPL").addFlat(20, 0.5, 1_000_000).
		add(11.5, 12, 11.4, 11.8, 3_000_000)

	cfg := Config{ATRPeriod: 14, VolAvgPeriod: 10, SlopeWindow: 5, RangeWindow: 5, RangeExclude: 1}
	rows, err := ComputeFull(b.bars, cfg)
	require.NoError(t, err)

	last := rows[len(rows)-1]
	require.True(t, Defined(last.ATR))
	assert.InDelta(t, 0.5, last.ATR, 1e-12)
	assert.InDelta(t, 3.0, last.GapDivATR, 1e-12) // (11.50-10.00)/0.5
	assert.InDelta(t, 0.15, last.GapPct, 1e-12)
	assert.InDelta(t, (11.8-11.5)/0.5, last.BodyDivATR, 1e-12)
}

func TestComputeFull_UndefinedNeverZero(t *testing.T) {
	// Two bars: nothing with a rolling window can be defined, and no
	// undefined indicator may read as zero.
	b := newSeries("AAPL").add(10, 11, 9, 10, 1).add(10, 11, 9, 10, 1)
	rows, err := ComputeFull(b.bars, defaultConfig())
	require.NoError(t, err)

	for i, r := range rows {
		assert.False(t, Defined(r.ATR), "ATR row %d", i)
		assert.False(t, Defined(r.EMA9), "EMA9 row %d", i)
		assert.False(t, Defined(r.VolAvg), "VolAvg row %d", i)
		assert.False(t, Defined(r.RangePos), "RangePos row %d", i)
		assert.False(t, Defined(r.GapDivATR), "GapDivATR row %d", i)
	}
}

func TestConfig_MinHistory(t *testing.T) {
	cfg := Config{ATRPeriod: 14, VolAvgPeriod: 10, SlopeWindow: 5, RangeWindow: 1000, RangeExclude: 3}
	assert.Equal(t, 1002, cfg.MinHistory())

	small := Config{ATRPeriod: 14, VolAvgPeriod: 10, SlopeWindow: 5, RangeWindow: 5, RangeExclude: 1}
	assert.Equal(t, 19, small.MinHistory()) // EMA20 warm-up dominates
}
