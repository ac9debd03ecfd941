// internal/status/code.go
package status

import "errors"

// ErrorCodeGeneric is reported for errors that carry no code of their own.
const ErrorCodeGeneric uint16 = 1

// ErrorCode extracts a uint16 code from an error without assuming concrete types.
// A nil error yields 0.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var c interface{ Code() uint16 }
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrorCodeGeneric
}
