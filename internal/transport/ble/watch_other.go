//go:build !linux

// internal/transport/ble/watch_other.go
package ble

// watchDisconnect is a no-op where the adapter's connect handler reports
// disconnects itself.
func watchDisconnect(string, func()) (func(), error) {
	return func() {}, nil
}
