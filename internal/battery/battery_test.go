// internal/battery/battery_test.go
package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateOfCharge(t *testing.T) {
	lead := Presets["12v_lead_acid"].Range

	cases := []struct {
		v    float64
		want int
	}{
		{10.5, 0},
		{9.0, 0},
		{12.8, 100},
		{14.4, 100},
		{11.8, 56},
		{12.62, 92},
	}
	for _, tc := range cases {
		got, ok := StateOfCharge(tc.v, lead)
		assert.True(t, ok)
		assert.Equal(t, tc.want, got, "voltage %.2f", tc.v)
	}
}

func TestStateOfChargeInvalidRange(t *testing.T) {
	_, ok := StateOfCharge(12, Range{})
	assert.False(t, ok)

	_, ok = StateOfCharge(12, Range{Min: 13, Max: 12})
	assert.False(t, ok)
}

func TestRangeValidate(t *testing.T) {
	assert.NoError(t, Range{Min: 10, Max: 14}.Validate())
	assert.Error(t, Range{Min: 14, Max: 10}.Validate())
	assert.Error(t, Range{Min: 12, Max: 12}.Validate())
	assert.Error(t, Range{Min: 0.5, Max: 12}.Validate())
	assert.Error(t, Range{Min: 10, Max: 61}.Validate())
}

func TestPresets(t *testing.T) {
	keys := PresetKeys()
	assert.Len(t, keys, 7)
	assert.Contains(t, keys, DefaultPreset)
	for _, k := range keys {
		assert.NoError(t, Presets[k].Range.Validate(), k)
	}
}

func TestLow(t *testing.T) {
	assert.True(t, Low(false))
	assert.False(t, Low(true))
}
