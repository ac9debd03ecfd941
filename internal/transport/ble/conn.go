// internal/transport/ble/conn.go
package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/loopholelabs/logging/types"
	"tinygo.org/x/bluetooth"
)

// Config is the minimal connection config.
type Config struct {
	Address     string
	ScanTimeout time.Duration
}

// Conn is one GATT connection to a monitor.
// It implements session.Transport.
type Conn struct {
	write  bluetooth.DeviceCharacteristic
	notify bluetooth.DeviceCharacteristic

	disconnect func() error
	stopWatch  func()

	closeOnce sync.Once
	done      chan struct{}
}

var (
	adapterOnce sync.Once
	adapterErr  error

	// connsMu guards conns, keyed by upper-case address.
	connsMu sync.Mutex
	conns   = map[string]*Conn{}
)

// Adapter enables and returns the default adapter.
func Adapter() (*bluetooth.Adapter, error) {
	adapterOnce.Do(func() {
		adapterErr = bluetooth.DefaultAdapter.Enable()
		if adapterErr == nil {
			bluetooth.DefaultAdapter.SetConnectHandler(onConnectChange)
		}
	})
	return bluetooth.DefaultAdapter, adapterErr
}

// onConnectChange marks a connection dead when the stack reports a disconnect.
// Not every backend reports disconnects here; see watchDisconnect.
func onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	markDisconnected(device.Address.String())
}

func markDisconnected(address string) {
	connsMu.Lock()
	c := conns[strings.ToUpper(address)]
	connsMu.Unlock()
	if c != nil {
		c.markDone()
	}
}

func register(address string, c *Conn) {
	connsMu.Lock()
	conns[strings.ToUpper(address)] = c
	connsMu.Unlock()
}

func unregister(c *Conn) {
	connsMu.Lock()
	for k, v := range conns {
		if v == c {
			delete(conns, k)
		}
	}
	connsMu.Unlock()
}

// Dial scans for cfg.Address, connects and resolves the characteristics.
// One attempt per call.
func Dial(ctx context.Context, cfg Config, log types.Logger) (*Conn, error) {
	if cfg.Address == "" {
		return nil, errors.New("ble: address required")
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 30 * time.Second
	}

	adapter, err := Adapter()
	if err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	want := strings.ToUpper(cfg.Address)
	found, err := scanFor(ctx, adapter, cfg.ScanTimeout, func(r bluetooth.ScanResult) bool {
		return strings.ToUpper(r.Address.String()) == want
	})
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.Debug().Str("address", want).Int("rssi", int(found.RSSI)).Msg("device found, connecting")
	}

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("ble: connect %s: %w", want, err)
	}

	c, err := resolve(device)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}

	register(want, c)

	stop, err := watchDisconnect(want, c.markDone)
	if err != nil {
		if log != nil {
			log.Warn().Str("address", want).Err(err).Msg("disconnect watch unavailable")
		}
	} else {
		c.stopWatch = stop
	}

	return c, nil
}

func resolve(device bluetooth.Device) (*Conn, error) {
	srvs, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(srvs) == 0 {
		return nil, errors.New("ble: battery monitor service not found")
	}

	chars, err := srvs[0].DiscoverCharacteristics([]bluetooth.UUID{notifyUUID, writeUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}

	c := &Conn{
		disconnect: device.Disconnect,
		done:       make(chan struct{}),
	}

	var haveNotify, haveWrite bool
	for _, ch := range chars {
		switch ch.UUID() {
		case notifyUUID:
			c.notify = ch
			haveNotify = true
		case writeUUID:
			c.write = ch
			haveWrite = true
		}
	}
	if !haveNotify || !haveWrite {
		return nil, errors.New("ble: notify/write characteristics not found")
	}
	return c, nil
}

// Write sends p to the write characteristic.
func (c *Conn) Write(p []byte) error {
	select {
	case <-c.done:
		return errors.New("ble: connection closed")
	default:
	}
	if _, err := c.write.WriteWithoutResponse(p); err != nil {
		return fmt.Errorf("ble: write: %w", err)
	}
	return nil
}

// Subscribe enables notifications and forwards each value to fn.
func (c *Conn) Subscribe(fn func([]byte)) error {
	if err := c.notify.EnableNotifications(fn); err != nil {
		return fmt.Errorf("ble: enable notifications: %w", err)
	}
	return nil
}

// Done is closed once the device disconnects or Close is called.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close disconnects from the device.
func (c *Conn) Close() error {
	unregister(c)
	c.markDone()
	if c.stopWatch != nil {
		c.stopWatch()
	}
	if c.disconnect == nil {
		return nil
	}
	return c.disconnect()
}

func (c *Conn) markDone() {
	c.closeOnce.Do(func() { close(c.done) })
}
