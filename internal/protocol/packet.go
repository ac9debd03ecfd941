// internal/protocol/packet.go
package protocol

import "encoding/binary"

// Build assembles an outbound packet for cmd with an optional payload.
//
// Layout:
//
//	HEADER_OUT(2) LENGTH(2,LE) CMD(2) PAYLOAD(n) CRC(2,LE) FOOTER(2)
//
// LENGTH = 10 + n, the size of the whole frame.
// Output is byte-identical for identical inputs.
func Build(cmd Command, payload []byte) []byte {
	length := Overhead + len(payload)

	pkt := make([]byte, 0, length)
	pkt = append(pkt, HeaderOut[:]...)
	pkt = binary.LittleEndian.AppendUint16(pkt, uint16(length))
	c := cmd.Bytes()
	pkt = append(pkt, c[:]...)
	pkt = append(pkt, payload...)

	pkt = binary.LittleEndian.AppendUint16(pkt, Checksum(pkt))
	return append(pkt, Footer[:]...)
}

// Length returns the LENGTH field of pkt, or 0 when pkt is too short to carry one.
func Length(pkt []byte) int {
	if len(pkt) < offCommand {
		return 0
	}
	return int(binary.LittleEndian.Uint16(pkt[offLength:offCommand]))
}

// CommandOf returns the command code carried by pkt.
func CommandOf(pkt []byte) (Command, bool) {
	if len(pkt) < offBody {
		return 0, false
	}
	return Command(binary.BigEndian.Uint16(pkt[offCommand:offBody])), true
}
