// internal/battery/battery.go

// Package battery derives presentation values from raw status readings.
package battery

import (
	"fmt"
	"sort"
)

// Range is the voltage window mapped onto 0..100 % state of charge.
type Range struct {
	Min float64
	Max float64
}

// Preset is a named battery chemistry with its voltage window.
type Preset struct {
	Name  string
	Range Range
}

// Custom selects a user supplied range instead of a preset.
const Custom = "custom"

// Limits for user supplied ranges.
const (
	MinVoltageLimit = 1.0
	MaxVoltageLimit = 60.0
)

// Presets by config key.
var Presets = map[string]Preset{
	"12v_lead_acid": {Name: "12V Lead Acid", Range: Range{Min: 10.5, Max: 12.8}},
	"12v_agm":       {Name: "12V AGM", Range: Range{Min: 10.5, Max: 12.9}},
	"12v_lifepo4":   {Name: "12V LiFePO4 (4S)", Range: Range{Min: 10.0, Max: 14.6}},
	"12v_lithium":   {Name: "12V Li-Ion (3S)", Range: Range{Min: 9.0, Max: 12.6}},
	"24v_lead_acid": {Name: "24V Lead Acid", Range: Range{Min: 21.0, Max: 25.6}},
	"24v_lifepo4":   {Name: "24V LiFePO4 (8S)", Range: Range{Min: 20.0, Max: 29.2}},
	"6v_lead_acid":  {Name: "6V Lead Acid", Range: Range{Min: 5.25, Max: 6.4}},
}

// DefaultPreset is used when no battery type is configured.
const DefaultPreset = "12v_lead_acid"

// PresetKeys returns the known preset keys in sorted order.
func PresetKeys() []string {
	keys := make([]string, 0, len(Presets))
	for k := range Presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks a user supplied range.
func (r Range) Validate() error {
	if r.Min >= r.Max {
		return fmt.Errorf("battery: voltage_min %.2f must be below voltage_max %.2f", r.Min, r.Max)
	}
	if r.Min < MinVoltageLimit || r.Max > MaxVoltageLimit {
		return fmt.Errorf("battery: voltage range must lie within %.1f-%.1f V", MinVoltageLimit, MaxVoltageLimit)
	}
	return nil
}

// StateOfCharge maps voltage linearly onto 0..100 within r.
// It reports false when r cannot produce a value.
func StateOfCharge(voltage float64, r Range) (int, bool) {
	if r.Max <= r.Min {
		return 0, false
	}
	soc := int((voltage - r.Min) / (r.Max - r.Min) * 100)
	if soc < 0 {
		soc = 0
	}
	if soc > 100 {
		soc = 100
	}
	return soc, true
}

// Low reports the inverse of the device's battery-ok flag.
// Alarm-style consumers expect "on" to mean a problem.
func Low(batteryOK bool) bool { return !batteryOK }
