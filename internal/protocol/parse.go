// internal/protocol/parse.go
package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// StatusReading is one decoded status response.
type StatusReading struct {
	Voltage   float64 // volts
	BatteryOK bool
	Charging  bool
}

// DeviceIdentity is the decoded device-info response.
type DeviceIdentity struct {
	Model           string
	HardwareVersion string
	FirmwareVersion string

	// Reserved and Capabilities have no known meaning; kept verbatim.
	Reserved     [identityFieldLen]byte
	Capabilities [4]byte
}

// batteryOK and chargingOn are the only byte values that mean "true".
const (
	batteryOK  byte = 0x02
	chargingOn byte = 0x01
)

// ParseStatus decodes a status response (command 4B0B).
// Checks run cheapest first and stop at the first failure.
func ParseStatus(b []byte) (StatusReading, error) {
	if err := checkInbound(b, StatusPacketLen, RespStatus); err != nil {
		return StatusReading{}, err
	}

	raw := binary.LittleEndian.Uint16(b[offBody : offBody+2])
	return StatusReading{
		Voltage:   float64(raw) / 100.0,
		BatteryOK: b[offBody+2] == batteryOK,
		Charging:  b[offBody+3] == chargingOn,
	}, nil
}

// ParseDeviceIdentity decodes a device-info response (command 4301).
func ParseDeviceIdentity(b []byte) (DeviceIdentity, error) {
	if err := checkInbound(b, DeviceInfoPacketLen, RespDeviceInfo); err != nil {
		return DeviceIdentity{}, err
	}

	field := func(i int) []byte {
		start := offBody + i*identityFieldLen
		return b[start : start+identityFieldLen]
	}

	id := DeviceIdentity{
		Model:           decodeASCII(field(0)),
		HardwareVersion: decodeASCII(field(1)),
		FirmwareVersion: decodeASCII(field(2)),
	}
	copy(id.Reserved[:], field(3))
	capStart := offBody + 4*identityFieldLen
	copy(id.Capabilities[:], b[capStart:capStart+4])
	return id, nil
}

func checkInbound(b []byte, minLen int, want Command) error {
	if len(b) < minLen {
		return ErrMalformedPacket
	}
	if b[0] != HeaderIn[0] || b[1] != HeaderIn[1] {
		return ErrMalformedPacket
	}
	w := want.Bytes()
	if b[offCommand] != w[0] || b[offCommand+1] != w[1] {
		return ErrMalformedPacket
	}
	return validate(b)
}

// decodeASCII trims trailing NULs and replaces any byte above 0x7F with U+FFFD.
func decodeASCII(field []byte) string {
	field = bytes.TrimRight(field, "\x00")

	var sb strings.Builder
	sb.Grow(len(field))
	for _, c := range field {
		if c > 0x7F {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
