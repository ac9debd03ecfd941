// internal/config/validate.go
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tamzrod/battery-monitor/internal/battery"
	"github.com/tamzrod/battery-monitor/internal/status"
	"github.com/tamzrod/battery-monitor/internal/transport/ble"
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

var logLevels = map[string]bool{
	"": true, "trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values mean "use the default" and are accepted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if !logLevels[strings.ToLower(cfg.Monitor.LogLevel)] {
		return fmt.Errorf("log_level %q is not one of trace|debug|info|warn|error", cfg.Monitor.LogLevel)
	}

	if len(cfg.Monitor.Devices) == 0 {
		return fmt.Errorf("at least one device is required")
	}

	ids := make(map[string]bool)

	for _, d := range cfg.Monitor.Devices {
		if d.ID == "" {
			return fmt.Errorf("device id is required")
		}
		if ids[d.ID] {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if err := validateTransport(d); err != nil {
			return err
		}

		if d.TimeoutMs < 0 {
			return fmt.Errorf("device %q: timeout_ms must be >= 0", d.ID)
		}

		if d.Poll.IntervalMs != 0 &&
			(d.Poll.IntervalMs < MinIntervalMs || d.Poll.IntervalMs > MaxIntervalMs) {
			return fmt.Errorf(
				"device %q: poll.interval_ms %d outside %d-%d",
				d.ID,
				d.Poll.IntervalMs,
				MinIntervalMs,
				MaxIntervalMs,
			)
		}

		if err := validateBattery(d); err != nil {
			return err
		}

		for _, t := range d.Targets {
			if t.Endpoint == "" {
				return fmt.Errorf("device %q: target endpoint is required", d.ID)
			}
		}
	}

	// ------------------------------------------------------------
	// DEVICE BLOCK COLLISIONS (PER ENDPOINT + UNIT)
	// ------------------------------------------------------------

	// key = endpoint | unit_id | base_slot
	blockOwner := make(map[string]string)

	for _, d := range cfg.Monitor.Devices {
		for _, t := range d.Targets {
			if (int(t.BaseSlot)+1)*status.SlotsPerDevice > 0x10000 {
				return fmt.Errorf(
					"device %q: base_slot %d exceeds the register space",
					d.ID,
					t.BaseSlot,
				)
			}

			key := fmt.Sprintf("%s|%d|%d", t.Endpoint, t.UnitID, t.BaseSlot)

			if prev, exists := blockOwner[key]; exists {
				return fmt.Errorf(
					"base_slot collision: endpoint=%s unit_id=%d slot=%d used by devices %q and %q",
					t.Endpoint,
					t.UnitID,
					t.BaseSlot,
					prev,
					d.ID,
				)
			}

			blockOwner[key] = d.ID
		}
	}

	return nil
}

func validateTransport(d DeviceConfig) error {
	switch d.Transport {
	case "", TransportBLE:
		if !macPattern.MatchString(d.Address) {
			return fmt.Errorf("device %q: address %q is not a MAC address", d.ID, d.Address)
		}
		if !ble.IsSupported(d.Address) {
			return fmt.Errorf("device %q: address %q is not a supported monitor (prefix %s)", d.ID, d.Address, ble.AddressPrefix)
		}
	case TransportSerial:
		if d.Serial.Port == "" {
			return fmt.Errorf("device %q: serial.port is required", d.ID)
		}
		if d.Serial.Baud < 0 {
			return fmt.Errorf("device %q: serial.baud must be >= 0", d.ID)
		}
	default:
		return fmt.Errorf("device %q: unknown transport %q", d.ID, d.Transport)
	}
	return nil
}

func validateBattery(d DeviceConfig) error {
	b := d.Battery

	if b.Type == battery.Custom {
		if b.VoltageMin == nil || b.VoltageMax == nil {
			return fmt.Errorf("device %q: custom battery requires voltage_min and voltage_max", d.ID)
		}
		r := battery.Range{Min: *b.VoltageMin, Max: *b.VoltageMax}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
		return nil
	}

	if b.Type != "" {
		if _, ok := battery.Presets[b.Type]; !ok {
			return fmt.Errorf(
				"device %q: unknown battery type %q (want one of %s or %s)",
				d.ID,
				b.Type,
				strings.Join(battery.PresetKeys(), ", "),
				battery.Custom,
			)
		}
	}
	if b.VoltageMin != nil || b.VoltageMax != nil {
		return fmt.Errorf("device %q: voltage_min/voltage_max require battery type %q", d.ID, battery.Custom)
	}
	return nil
}
