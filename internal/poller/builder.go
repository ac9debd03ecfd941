// internal/poller/builder.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/loopholelabs/logging/types"

	cfg "github.com/tamzrod/battery-monitor/internal/config"
	"github.com/tamzrod/battery-monitor/internal/session"
	"github.com/tamzrod/battery-monitor/internal/transport/ble"
	"github.com/tamzrod/battery-monitor/internal/transport/serial"
)

// transport is a session transport that can be released.
type transport interface {
	session.Transport
	Close() error
}

// sessionClient binds a session to the transport it owns.
type sessionClient struct {
	*session.Session
	tr transport
}

func (c *sessionClient) Close() error { return c.tr.Close() }

// Build constructs a Poller and wires the transport + session lifecycle.
// The first connection attempt happens on the first cycle.
func Build(d cfg.DeviceConfig, log types.Logger) (*Poller, error) {
	dial, err := dialer(d, log)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(d.TimeoutMs) * time.Millisecond

	factory := func(ctx context.Context) (Client, error) {
		return newSessionClient(ctx, dial, session.Config{DeviceID: d.ID, Timeout: timeout}, log)
	}

	return New(
		Config{
			DeviceID: d.ID,
			Interval: time.Duration(d.Poll.IntervalMs) * time.Millisecond,
		},
		nil,
		factory,
		log,
	)
}

// newSessionClient dials a transport and starts a session on it.
func newSessionClient(ctx context.Context, dial func(context.Context) (transport, error), sc session.Config, log types.Logger) (Client, error) {
	tr, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	s, err := session.New(sc, tr, log)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return &sessionClient{Session: s, tr: tr}, nil
}

func dialer(d cfg.DeviceConfig, log types.Logger) (func(context.Context) (transport, error), error) {
	switch d.Transport {
	case cfg.TransportBLE:
		c := ble.Config{Address: d.Address}
		return func(ctx context.Context) (transport, error) {
			return ble.Dial(ctx, c, log)
		}, nil
	case cfg.TransportSerial:
		c := serial.Config{Port: d.Serial.Port, Baud: d.Serial.Baud}
		return func(context.Context) (transport, error) {
			return serial.Open(c, log)
		}, nil
	default:
		return nil, errors.New("poller: unknown transport " + d.Transport)
	}
}
