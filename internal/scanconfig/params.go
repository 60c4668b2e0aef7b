// Package scanconfig defines the named thresholds that drive one scan
// run. Thresholds are configuration, not code: a new scanner variant is
// a new parameter file, never a new source file.
package scanconfig

import (
	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/features"
	"github.com/dmarsh/strider/internal/prefilter"
)

// TriggerMode selects which prior days may anchor a pattern.
type TriggerMode string

const (
	// TriggerModeD1Only evaluates the trigger mold on D-1 only.
	TriggerModeD1Only TriggerMode = "D1_only"
	// TriggerModeD1OrD2 falls back to D-2 when D-1 fails the mold.
	// D-1 always wins when both qualify.
	TriggerModeD1OrD2 TriggerMode = "D1_or_D2"
)

// Params is the flat, immutable threshold set for one run. Deployments
// disagree on several window lengths (10 vs 14 period ATR, 3 vs 10
// excluded range days), so all of them live here rather than as
// constants.
type Params struct {
	// Indicator windows.
	ATRPeriod         int `yaml:"atr_period"`
	VolAvgPeriod      int `yaml:"vol_avg_period"`
	SlopeWindow       int `yaml:"slope_window"`
	PosAbsWindow      int `yaml:"pos_abs_window"`
	PosAbsExcludeDays int `yaml:"pos_abs_exclude_days"`

	// Prefilter floors and ceilings.
	PriceMin     float64 `yaml:"price_min"`
	PriceMax     float64 `yaml:"price_max"`
	DollarVolMin float64 `yaml:"dollar_vol_min"`
	ShareVolMin  float64 `yaml:"share_vol_min"`

	// Context gate.
	PosAbsMax float64 `yaml:"pos_abs_max"`

	// Trigger mold.
	TriggerMode      TriggerMode `yaml:"trigger_mode"`
	ATRRatioMin      float64     `yaml:"atr_ratio_min"`
	VolMultMin       float64     `yaml:"vol_mult_min"`
	SlopeMin         float64     `yaml:"slope_min"`
	HighEMADivATRMin float64     `yaml:"high_ema_div_atr_min"`

	// Confirmation gates on the trigger row. A nil RelVolMin skips the
	// relative-volume gate entirely.
	BodyDivATRMin    float64  `yaml:"body_div_atr_min"`
	TriggerVolMin    float64  `yaml:"trigger_vol_min"`
	RelVolMin        *float64 `yaml:"rel_vol_min"`
	RequireD1AboveD2 bool     `yaml:"require_d1_above_d2"`

	// Entry gates on D0.
	GapDivATRMin           float64 `yaml:"gap_div_atr_min"`
	GapPctMin              float64 `yaml:"gap_pct_min"`
	RequireOpenAboveD1High bool    `yaml:"require_open_above_d1_high"`
	OpenDivEMA9Min         float64 `yaml:"open_div_ema9_min"`
}

// Default returns the stock parameter set. Every value here is a
// starting point to tune per deployment, not a canonical truth.
func Default() Params {
	return Params{
		ATRPeriod:         14,
		VolAvgPeriod:      14,
		SlopeWindow:       5,
		PosAbsWindow:      1000,
		PosAbsExcludeDays: 3,

		PriceMin:     1.0,
		PriceMax:     0, // unbounded
		DollarVolMin: 5_000_000,
		ShareVolMin:  300_000,

		PosAbsMax: 0.75,

		TriggerMode:      TriggerModeD1OrD2,
		ATRRatioMin:      1.2,
		VolMultMin:       1.5,
		SlopeMin:         0,
		HighEMADivATRMin: 0.5,

		BodyDivATRMin:    0.5,
		TriggerVolMin:    1_000_000,
		RelVolMin:        nil,
		RequireD1AboveD2: false,

		GapDivATRMin:           0.75,
		GapPctMin:              0.01,
		RequireOpenAboveD1High: true,
		OpenDivEMA9Min:         1.0,
	}
}

// Validate checks presence and declared ranges. It does not judge
// whether thresholds are sensible, only whether they are legal.
func (p Params) Validate() error {
	if p.ATRPeriod <= 0 {
		return &contracts.ConfigError{Field: "atr_period", Message: "must be > 0"}
	}
	if p.VolAvgPeriod <= 0 {
		return &contracts.ConfigError{Field: "vol_avg_period", Message: "must be > 0"}
	}
	if p.SlopeWindow <= 0 {
		return &contracts.ConfigError{Field: "slope_window", Message: "must be > 0"}
	}
	if p.PosAbsWindow <= 0 {
		return &contracts.ConfigError{Field: "pos_abs_window", Message: "must be > 0"}
	}
	if p.PosAbsExcludeDays < 1 {
		return &contracts.ConfigError{Field: "pos_abs_exclude_days", Message: "must be >= 1"}
	}
	if p.PosAbsMax < 0 || p.PosAbsMax > 1 {
		return &contracts.ConfigError{Field: "pos_abs_max", Message: "must be in [0, 1]"}
	}
	if p.TriggerMode != TriggerModeD1Only && p.TriggerMode != TriggerModeD1OrD2 {
		return &contracts.ConfigError{Field: "trigger_mode", Message: "must be D1_only or D1_or_D2"}
	}
	if p.PriceMin < 0 || p.PriceMax < 0 || p.DollarVolMin < 0 || p.ShareVolMin < 0 {
		return &contracts.ConfigError{Field: "prefilter", Message: "floors and ceilings must be >= 0"}
	}
	if p.PriceMax > 0 && p.PriceMin > p.PriceMax {
		return &contracts.ConfigError{Field: "price_min", Message: "must not exceed price_max"}
	}
	if p.RelVolMin != nil && *p.RelVolMin < 0 {
		return &contracts.ConfigError{Field: "rel_vol_min", Message: "must be >= 0 when set"}
	}
	if p.TriggerVolMin < 0 {
		return &contracts.ConfigError{Field: "trigger_vol_min", Message: "must be >= 0"}
	}
	return nil
}

// FeatureConfig maps the window parameters onto the feature engine.
func (p Params) FeatureConfig() features.Config {
	return features.Config{
		ATRPeriod:    p.ATRPeriod,
		VolAvgPeriod: p.VolAvgPeriod,
		SlopeWindow:  p.SlopeWindow,
		RangeWindow:  p.PosAbsWindow,
		RangeExclude: p.PosAbsExcludeDays,
	}
}

// PrefilterThresholds maps the cheap-pass floors onto the prefilter.
func (p Params) PrefilterThresholds() prefilter.Thresholds {
	return prefilter.Thresholds{
		PriceMin:     p.PriceMin,
		PriceMax:     p.PriceMax,
		DollarVolMin: p.DollarVolMin,
		ShareVolMin:  p.ShareVolMin,
	}
}
