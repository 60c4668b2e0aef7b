package scanconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarsh/strider/internal/contracts"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_Ranges(t *testing.T) {
	relVol := -0.5

	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"zero atr period", func(p *Params) { p.ATRPeriod = 0 }, "atr_period"},
		{"negative vol avg period", func(p *Params) { p.VolAvgPeriod = -1 }, "vol_avg_period"},
		{"zero slope window", func(p *Params) { p.SlopeWindow = 0 }, "slope_window"},
		{"zero range window", func(p *Params) { p.PosAbsWindow = 0 }, "pos_abs_window"},
		{"zero exclude days", func(p *Params) { p.PosAbsExcludeDays = 0 }, "pos_abs_exclude_days"},
		{"pos abs max above one", func(p *Params) { p.PosAbsMax = 1.2 }, "pos_abs_max"},
		{"pos abs max negative", func(p *Params) { p.PosAbsMax = -0.1 }, "pos_abs_max"},
		{"unknown trigger mode", func(p *Params) { p.TriggerMode = "D3_maybe" }, "trigger_mode"},
		{"negative price floor", func(p *Params) { p.PriceMin = -1 }, "prefilter"},
		{"inverted price band", func(p *Params) { p.PriceMin = 50; p.PriceMax = 10 }, "price_min"},
		{"negative rel vol", func(p *Params) { p.RelVolMin = &relVol }, "rel_vol_min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)

			err := p.Validate()
			var cfgErr *contracts.ConfigError
			require.Error(t, err)
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	p, err := Parse([]byte(`
atr_period: 10
pos_abs_exclude_days: 10
trigger_mode: D1_only
rel_vol_min: 2.0
`))
	require.NoError(t, err)

	assert.Equal(t, 10, p.ATRPeriod)
	assert.Equal(t, 10, p.PosAbsExcludeDays)
	assert.Equal(t, TriggerModeD1Only, p.TriggerMode)
	require.NotNil(t, p.RelVolMin)
	assert.Equal(t, 2.0, *p.RelVolMin)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().GapDivATRMin, p.GapDivATRMin)
}

func TestParse_RelVolUnsetStaysNil(t *testing.T) {
	p, err := Parse([]byte("atr_period: 14\n"))
	require.NoError(t, err)
	assert.Nil(t, p.RelVolMin, "unset rel_vol_min must skip the gate, not fail it")
}

func TestParse_UnknownKeyFails(t *testing.T) {
	_, err := Parse([]byte("atr_periood: 14\n"))
	require.Error(t, err)
}

func TestParse_InvalidValueFails(t *testing.T) {
	_, err := Parse([]byte("pos_abs_max: 3.0\n"))
	var cfgErr *contracts.ConfigError
	require.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestFeatureConfig_Mapping(t *testing.T) {
	p := Default()
	fc := p.FeatureConfig()
	assert.Equal(t, p.ATRPeriod, fc.ATRPeriod)
	assert.Equal(t, p.PosAbsWindow, fc.RangeWindow)
	assert.Equal(t, p.PosAbsExcludeDays, fc.RangeExclude)
}
