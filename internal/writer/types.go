// internal/writer/types.go
package writer

import "github.com/tamzrod/battery-monitor/internal/status"

// Target is one register memory (endpoint + unit) receiving a device block.
type Target struct {
	Endpoint string
	UnitID   uint8
	BaseSlot uint16
}

// Plan is the fully-built write plan for one device.
type Plan struct {
	DeviceID string
	Targets  []Target
}

// Writer delivers device status snapshots into targets.
type Writer interface {
	WriteStatus(s status.Snapshot) error
}

// RegisterWriter is the exact contract the writer uses.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}
