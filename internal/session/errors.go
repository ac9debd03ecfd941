// internal/session/errors.go
package session

// Error is a session failure with a stable numeric code.
// Codes are written verbatim into the device status block.
type Error struct {
	code uint16
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable code for e.
func (e *Error) Code() uint16 { return e.code }

// Failed-cycle outcomes. None are retried here.
var (
	// ErrResponseTimeout means no notification arrived within the timeout.
	ErrResponseTimeout = &Error{code: 2, msg: "session: response timeout"}

	// ErrInvalidResponse wraps protocol.ErrMalformedPacket or protocol.ErrChecksumMismatch.
	ErrInvalidResponse = &Error{code: 3, msg: "session: invalid response"}

	// ErrTransportUnavailable means a write, subscribe or the connection itself failed.
	ErrTransportUnavailable = &Error{code: 4, msg: "session: transport unavailable"}

	// ErrCancelled means the caller's context ended while a request was outstanding.
	ErrCancelled = &Error{code: 5, msg: "session: cancelled"}
)
