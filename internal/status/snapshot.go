// internal/status/snapshot.go
package status

import (
	"math"

	"github.com/tamzrod/battery-monitor/internal/protocol"
)

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16

	Voltage       uint16 // centivolts
	Flags         uint16
	StateOfCharge uint16

	Model           string
	HardwareVersion string
	FirmwareVersion string
}

// SetReading copies a status reading into the live slots.
func (s *Snapshot) SetReading(r protocol.StatusReading, soc int, socKnown bool) {
	s.Voltage = Centivolts(r.Voltage)
	s.Flags = 0
	if r.BatteryOK {
		s.Flags |= FlagBatteryOK
	}
	if r.Charging {
		s.Flags |= FlagCharging
	}
	s.StateOfCharge = SoCUnknown
	if socKnown {
		s.StateOfCharge = uint16(soc)
	}
}

// SetIdentity copies the identity strings into the snapshot.
func (s *Snapshot) SetIdentity(id protocol.DeviceIdentity) {
	s.Model = id.Model
	s.HardwareVersion = id.HardwareVersion
	s.FirmwareVersion = id.FirmwareVersion
}

// Centivolts converts volts to a register value, saturating at the uint16 range.
func Centivolts(v float64) uint16 {
	c := math.Round(v * 100)
	switch {
	case c <= 0:
		return 0
	case c >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(c)
}
