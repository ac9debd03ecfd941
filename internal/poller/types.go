// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/battery-monitor/internal/protocol"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	DeviceID string
	At       time.Time

	// Identity is set once the device has answered a device-info request
	// on the current connection.
	Identity    protocol.DeviceIdentity
	HasIdentity bool

	Reading protocol.StatusReading
	Err     error // non-nil means the poll cycle failed
}
