// internal/transport/ble/constants.go
package ble

import (
	"strings"

	"tinygo.org/x/bluetooth"
)

// GATT layout of the monitor.
const (
	ServiceID = "0000fff0-0000-1000-8000-00805f9b34fb"
	NotifyID  = "0000fff1-0000-1000-8000-00805f9b34fb"
	WriteID   = "0000fff2-0000-1000-8000-00805f9b34fb"
)

// AddressPrefix identifies supported monitors during discovery.
const AddressPrefix = "B3:00"

var (
	serviceUUID = must(bluetooth.ParseUUID(ServiceID))
	notifyUUID  = must(bluetooth.ParseUUID(NotifyID))
	writeUUID   = must(bluetooth.ParseUUID(WriteID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// IsSupported reports whether address belongs to a supported monitor.
func IsSupported(address string) bool {
	return strings.HasPrefix(strings.ToUpper(address), AddressPrefix)
}
