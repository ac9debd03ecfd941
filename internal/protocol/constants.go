// internal/protocol/constants.go
package protocol

// Wire layout constants.
// These values define the device protocol and MUST NOT be configurable.

// ---- FRAMING ----

// HeaderOut prefixes every packet sent to the device.
var HeaderOut = [2]byte{0x40, 0x40}

// HeaderIn prefixes every packet sent by the device.
var HeaderIn = [2]byte{0x24, 0x24}

// Footer terminates every packet in both directions.
var Footer = [2]byte{0x0D, 0x0A}

// Overhead is header(2) + length(2) + command(2) + crc(2) + footer(2).
// The length field carries Overhead plus the body size, i.e. the full frame.
const Overhead = 10

// MinPacketLen is the shortest packet Validate will consider.
const MinPacketLen = 10

// MaxPacketLen bounds frames accepted from byte-stream transports.
const MaxPacketLen = 256

// Residue is the CRC over a message with its own CRC appended.
// It is specific to the final XOR used by Checksum (~0xF0B8).
const Residue uint16 = 0x0F47

// ---- OFFSETS ----

const (
	offHeader  = 0
	offLength  = 2
	offCommand = 4
	offBody    = 6
)

// ---- RESPONSE SIZES ----

// StatusPacketLen is the size of a status response.
const StatusPacketLen = 14

// DeviceInfoPacketLen is the size of a device-info response.
const DeviceInfoPacketLen = 54

// identityFieldLen is the width of each ASCII field in the device-info body.
const identityFieldLen = 10

// ---- COMMANDS ----

// Command is a 2-byte operation code, stored in wire order (first byte high).
type Command uint16

const (
	CmdStatusPoll Command = 0x0B0B
	CmdDeviceInfo Command = 0x0301

	RespStatus     Command = 0x4B0B
	RespDeviceInfo Command = 0x4301
)

// Bytes returns the command as it appears on the wire.
func (c Command) Bytes() [2]byte {
	return [2]byte{byte(c >> 8), byte(c)}
}

// Response returns the command code the device answers c with.
// Unknown commands map to themselves.
func (c Command) Response() Command {
	switch c {
	case CmdStatusPoll:
		return RespStatus
	case CmdDeviceInfo:
		return RespDeviceInfo
	default:
		return c
	}
}

// String renders the command as four hex digits.
func (c Command) String() string {
	const hex = "0123456789ABCDEF"
	b := c.Bytes()
	return string([]byte{hex[b[0]>>4], hex[b[0]&0x0F], hex[b[1]>>4], hex[b[1]&0x0F]})
}
