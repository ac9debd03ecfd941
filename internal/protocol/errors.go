// internal/protocol/errors.go
package protocol

import "errors"

var (
	// ErrMalformedPacket is returned when length, header or command checks fail.
	ErrMalformedPacket = errors.New("protocol: malformed packet")

	// ErrChecksumMismatch is returned when the footer or CRC residue is wrong.
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
)
