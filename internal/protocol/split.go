// internal/protocol/split.go
package protocol

import "bytes"

// SplitFrames is a bufio.SplitFunc for byte-stream transports.
//
// Noise before a frame is skipped inside one call and consumed together with
// the frame, so the scanner never sees an empty token while frames remain.
// A header carrying an implausible length is stepped over one byte at a time.
// At EOF a truncated frame is treated as noise.
func SplitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	skip := 0
	for {
		i := bytes.Index(data[skip:], HeaderIn[:])
		if i < 0 {
			// Keep a trailing half header.
			if n := len(data); !atEOF && n > skip && data[n-1] == HeaderIn[0] {
				return n - 1, nil, nil
			}
			return len(data), nil, nil
		}
		skip += i
		rest := data[skip:]

		if len(rest) < offCommand {
			if atEOF {
				return len(data), nil, nil
			}
			return skip, nil, nil
		}

		length := Length(rest)
		if length < Overhead || length > MaxPacketLen {
			skip++
			continue
		}

		if len(rest) < length {
			if atEOF {
				skip++
				continue
			}
			return skip, nil, nil
		}
		return skip + length, rest[:length], nil
	}
}
