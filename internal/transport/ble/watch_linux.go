// internal/transport/ble/watch_linux.go
package ble

import (
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

// The BlueZ backend never invokes the adapter's connect handler, so
// disconnects are read from the device object's property changes.

const (
	bluezAdapterPath   = "/org/bluez/hci0"
	bluezDevice        = "org.bluez.Device1"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	propertiesChanged  = propertiesIface + ".PropertiesChanged"
	propertyConnected  = "Connected"
	disconnectChanSize = 8
)

// bluezPath returns the object path of address on the default adapter.
func bluezPath(address string) dbus.ObjectPath {
	return dbus.ObjectPath(bluezAdapterPath + "/dev_" + strings.ReplaceAll(strings.ToUpper(address), ":", "_"))
}

// watchDisconnect calls onDown once BlueZ reports address as disconnected.
// The returned stop func releases the bus connection.
func watchDisconnect(address string, onDown func()) (func(), error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: system bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(bluezPath(address)),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ble: match PropertiesChanged: %w", err)
	}

	ch := make(chan *dbus.Signal, disconnectChanSize)
	conn.Signal(ch)

	stopped := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopped:
				return
			case sig, ok := <-ch:
				if !ok {
					return
				}
				if disconnected(sig) {
					onDown()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopped)
			conn.RemoveSignal(ch)
			_ = conn.Close()
		})
	}, nil
}

// disconnected reports whether sig is a Device1 change with Connected=false.
func disconnected(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return false
	}
	if iface, _ := sig.Body[0].(string); iface != bluezDevice {
		return false
	}
	changed, _ := sig.Body[1].(map[string]dbus.Variant)
	v, ok := changed[propertyConnected]
	if !ok {
		return false
	}
	connected, ok := v.Value().(bool)
	return ok && !connected
}
