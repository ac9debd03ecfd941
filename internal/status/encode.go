// internal/status/encode.go
package status

// Encode converts a Snapshot into a full device status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotVoltage] = s.Voltage
	regs[SlotFlags] = s.Flags
	regs[SlotStateOfCharge] = s.StateOfCharge

	// Slots 6..9 are RESERVED and left as zero.

	copy(regs[SlotModelStart:], EncodeASCII(s.Model))
	copy(regs[SlotHardwareVersionStart:], EncodeASCII(s.HardwareVersion))
	copy(regs[SlotFirmwareVersionStart:], EncodeASCII(s.FirmwareVersion))

	return regs
}

// EncodeASCII packs up to IdentityFieldMaxChars ASCII characters into
// IdentityFieldSlots registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeASCII(v string) []uint16 {
	out := make([]uint16, IdentityFieldSlots)

	b := []byte(v)
	if len(b) > IdentityFieldMaxChars {
		b = b[:IdentityFieldMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < IdentityFieldMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
