// internal/protocol/crc.go
package protocol

// Checksum computes CRC-16/X.25 (reflected poly 0x8408, init 0xFFFF, xorout 0xFFFF).
func Checksum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc ^ 0xFFFF
}

// Validate reports whether pkt carries the footer and a correct CRC.
//
// The CRC is checked by residue: running Checksum over everything except the
// footer, embedded CRC included, yields Residue for an intact packet.
func Validate(pkt []byte) bool {
	return validate(pkt) == nil
}

func validate(pkt []byte) error {
	if len(pkt) < MinPacketLen {
		return ErrMalformedPacket
	}
	n := len(pkt)
	if pkt[n-2] != Footer[0] || pkt[n-1] != Footer[1] {
		return ErrChecksumMismatch
	}
	if Checksum(pkt[:n-2]) != Residue {
		return ErrChecksumMismatch
	}
	return nil
}
