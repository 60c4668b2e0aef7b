// Package pattern evaluates the multi-day gap pattern for one ticker at
// a time. Gates are data: an ordered rule list built from the scan
// parameters and evaluated generically with short-circuit, so scanner
// variants differ in configuration, never in source.
package pattern

import (
	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/features"
	"github.com/dmarsh/strider/internal/scanconfig"
)

// Detector walks one ticker's feature rows in strict date order and
// emits a Signal for every D0 date that clears the full gate list.
type Detector struct {
	params scanconfig.Params
	gates  []gate
}

// gate is one named rule in the evaluation order. It reads the
// candidate state and reports pass or fail; evaluation stops at the
// first failure. An undefined indicator always fails the gate reading
// it, never defaults to pass.
type gate struct {
	name string
	eval func(*candidate) bool
}

// candidate is the mutable state for one (ticker, D0 date) evaluation.
type candidate struct {
	rows    []features.Row
	i       int // D0 index into rows
	trigger int // trigger row index, set by the trigger gate
	tag     string
	diag    contracts.Diagnostics
}

// New builds a detector for one parameter set. The returned gate order
// is fixed: context, trigger, confirmations, entries.
func New(params scanconfig.Params) *Detector {
	d := &Detector{params: params}
	d.gates = []gate{
		{name: "context_range_position", eval: d.contextGate},
		{name: "trigger_mold", eval: d.triggerGate},
		{name: "confirm_green_body", eval: d.greenBodyGate},
		{name: "confirm_volume", eval: d.triggerVolumeGate},
	}
	if params.RelVolMin != nil {
		d.gates = append(d.gates, gate{name: "confirm_rel_volume", eval: d.relVolumeGate})
	}
	if params.RequireD1AboveD2 {
		d.gates = append(d.gates, gate{name: "confirm_d1_above_d2", eval: d.d1AboveD2Gate})
	}
	d.gates = append(d.gates,
		gate{name: "entry_gap_div_atr", eval: d.gapDivATRGate},
		gate{name: "entry_gap_pct", eval: d.gapPctGate},
	)
	if params.RequireOpenAboveD1High {
		d.gates = append(d.gates, gate{name: "entry_open_above_d1_high", eval: d.openAboveD1HighGate})
	}
	d.gates = append(d.gates, gate{name: "entry_open_div_ema9", eval: d.openDivEMA9Gate})
	return d
}

// GateNames returns the active rule order, useful for diagnostics.
func (d *Detector) GateNames() []string {
	names := make([]string, len(d.gates))
	for i, g := range d.gates {
		names[i] = g.name
	}
	return names
}

// Detect evaluates every D0 date of one ticker's series. Rows must be
// the ticker's complete series, historical buffer included, in
// ascending date order.
func (d *Detector) Detect(rows []features.Row, window contracts.ScanWindow) []contracts.Signal {
	var signals []contracts.Signal
	for i := 2; i < len(rows); i++ {
		if !window.InD0(rows[i].Date) {
			continue
		}
		c := &candidate{rows: rows, i: i, trigger: -1}
		if d.pass(c) {
			signals = append(signals, contracts.Signal{
				Ticker:      rows[i].Ticker,
				Date:        rows[i].Date,
				TriggerTag:  c.tag,
				Diagnostics: c.diag,
			})
		}
	}
	return signals
}

func (d *Detector) pass(c *candidate) bool {
	for _, g := range d.gates {
		if !g.eval(c) {
			return false
		}
	}
	return true
}

// contextGate rejects candidates whose D-1 close sits too high in its
// trailing range. The range window already excludes the most recent
// days, so the pattern's own run-up does not inflate the denominator.
func (d *Detector) contextGate(c *candidate) bool {
	pos := c.rows[c.i-1].RangePos
	if !features.Defined(pos) {
		return false
	}
	c.diag.RangePos = pos
	return pos <= d.params.PosAbsMax
}

// triggerGate evaluates the compound mold on D-1 and, when configured,
// on D-2 as a fallback. D-1 always wins when both qualify.
func (d *Detector) triggerGate(c *candidate) bool {
	if d.mold(&c.rows[c.i-1], c) {
		c.trigger = c.i - 1
		c.tag = contracts.TriggerD1
		return true
	}
	if d.params.TriggerMode == scanconfig.TriggerModeD1OrD2 && d.mold(&c.rows[c.i-2], c) {
		c.trigger = c.i - 2
		c.tag = contracts.TriggerD2
		return true
	}
	return false
}

// mold is the compound trigger condition: expanded true range, volume
// above its rolling average, rising EMA9, and a high stretched away
// from the EMA. Records diagnostics for the row that passes.
func (d *Detector) mold(r *features.Row, c *candidate) bool {
	if !features.Defined(r.ATR) || r.ATR <= 0 {
		return false
	}
	atrMul := r.TrueRange / r.ATR
	if atrMul < d.params.ATRRatioMin {
		return false
	}
	if !features.Defined(r.RelVolume) || r.RelVolume < d.params.VolMultMin {
		return false
	}
	if !features.Defined(r.EMA9Slope) || r.EMA9Slope < d.params.SlopeMin {
		return false
	}
	if !features.Defined(r.EMA9) {
		return false
	}
	if (r.High-r.EMA9)/r.ATR < d.params.HighEMADivATRMin {
		return false
	}

	c.diag.TriggerATRMul = atrMul
	c.diag.TriggerRelVol = r.RelVolume
	c.diag.TriggerSlope = r.EMA9Slope
	return true
}

// greenBodyGate requires a green trigger candle with a body of at least
// the configured ATR fraction.
func (d *Detector) greenBodyGate(c *candidate) bool {
	r := &c.rows[c.trigger]
	if r.Close <= r.Open {
		return false
	}
	if !features.Defined(r.BodyDivATR) || r.BodyDivATR < d.params.BodyDivATRMin {
		return false
	}
	c.diag.BodyDivATR = r.BodyDivATR
	return true
}

func (d *Detector) triggerVolumeGate(c *candidate) bool {
	return c.rows[c.trigger].Volume >= d.params.TriggerVolMin
}

func (d *Detector) relVolumeGate(c *candidate) bool {
	rv := c.rows[c.trigger].RelVolume
	return features.Defined(rv) && rv >= *d.params.RelVolMin
}

// d1AboveD2Gate requires D-1 to clear D-2 on both high and close.
func (d *Detector) d1AboveD2Gate(c *candidate) bool {
	d1, d2 := &c.rows[c.i-1], &c.rows[c.i-2]
	return d1.High > d2.High && d1.Close > d2.Close
}

func (d *Detector) gapDivATRGate(c *candidate) bool {
	g := c.rows[c.i].GapDivATR
	if !features.Defined(g) || g < d.params.GapDivATRMin {
		return false
	}
	c.diag.GapDivATR = g
	return true
}

func (d *Detector) gapPctGate(c *candidate) bool {
	g := c.rows[c.i].GapPct
	if !features.Defined(g) || g < d.params.GapPctMin {
		return false
	}
	c.diag.GapPct = g
	return true
}

func (d *Detector) openAboveD1HighGate(c *candidate) bool {
	return c.rows[c.i].Open > c.rows[c.i-1].High
}

func (d *Detector) openDivEMA9Gate(c *candidate) bool {
	r := &c.rows[c.i]
	if !features.Defined(r.EMA9) || r.EMA9 <= 0 {
		return false
	}
	ratio := r.Open / r.EMA9
	if ratio < d.params.OpenDivEMA9Min {
		return false
	}
	c.diag.OpenDivEMA9 = ratio
	return true
}
