// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/battery-monitor/internal/battery"
	"github.com/tamzrod/battery-monitor/internal/transport/serial"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Monitor.LogLevel == "" {
		cfg.Monitor.LogLevel = DefaultLogLevel
	}
	cfg.Monitor.LogLevel = strings.ToLower(cfg.Monitor.LogLevel)

	for di := range cfg.Monitor.Devices {
		d := &cfg.Monitor.Devices[di]

		if d.Transport == "" {
			d.Transport = TransportBLE
		}
		if d.Transport == TransportBLE {
			d.Address = strings.ToUpper(d.Address)
		}
		if d.Transport == TransportSerial && d.Serial.Baud == 0 {
			d.Serial.Baud = serial.DefaultBaud
		}

		if d.TimeoutMs == 0 {
			d.TimeoutMs = DefaultTimeoutMs
		}
		if d.Poll.IntervalMs == 0 {
			d.Poll.IntervalMs = DefaultIntervalMs
		}

		// Presets resolve to explicit bounds so later stages see one shape.
		if d.Battery.Type == "" {
			d.Battery.Type = battery.DefaultPreset
		}
		if p, ok := battery.Presets[d.Battery.Type]; ok {
			lo, hi := p.Range.Min, p.Range.Max
			d.Battery.VoltageMin = &lo
			d.Battery.VoltageMax = &hi
		}
	}
}

// BatteryRange returns the resolved voltage window of a normalized device.
func (d DeviceConfig) BatteryRange() battery.Range {
	if d.Battery.VoltageMin == nil || d.Battery.VoltageMax == nil {
		return battery.Range{}
	}
	return battery.Range{Min: *d.Battery.VoltageMin, Max: *d.Battery.VoltageMax}
}
