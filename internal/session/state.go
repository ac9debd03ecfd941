// internal/session/state.go
package session

// State is the position of a session in its request/response cycle.
type State int32

const (
	StateIdle State = iota
	StateAwaitingDeviceIdentity
	StateAwaitingStatus
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDeviceIdentity:
		return "awaiting_device_identity"
	case StateAwaitingStatus:
		return "awaiting_status"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
