// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/battery-monitor/internal/protocol"
	"github.com/tamzrod/battery-monitor/internal/session"
)

// Client abstracts one connected device.
// The poller depends on the exchange only.
type Client interface {
	PollStatus(ctx context.Context) (protocol.StatusReading, error)
	Identity() (protocol.DeviceIdentity, bool)
	Close() error
}

// Factory opens a new Client. ONE attempt per call.
type Factory func(ctx context.Context) (Client, error)

// Config is the minimal runtime config the poller needs.
type Config struct {
	DeviceID string
	Interval time.Duration
}

// MaxTimeouts is the number of consecutive response timeouts after which a
// connected client is recycled. A link can stay up while the device has
// stopped notifying; a fresh connection re-subscribes.
const MaxTimeouts = 3

// Poller is a dumb, clock-driven reader.
// Connection is reused while healthy. On transport death, or after
// MaxTimeouts consecutive timeouts, the client is discarded and the factory
// is used on a future tick.
type Poller struct {
	cfg     Config
	client  Client
	factory Factory
	log     types.Logger

	timeouts int
}

// New creates a poller with immutable config.
// client may be nil, in which case the first cycle dials through factory.
func New(cfg Config, client Client, factory Factory, log types.Logger) (*Poller, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("poller: device id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if client == nil && factory == nil {
		return nil, errors.New("poller: client or factory required")
	}
	return &Poller{cfg: cfg, client: client, factory: factory, log: log}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		DeviceID: p.cfg.DeviceID,
		At:       time.Now(),
	}

	if p.client == nil {
		if p.factory == nil {
			res.Err = fmt.Errorf("%w: no client", session.ErrTransportUnavailable)
			return res
		}
		c, err := p.factory(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.Err = fmt.Errorf("%w: %w", session.ErrCancelled, err)
			} else {
				res.Err = fmt.Errorf("%w: connect: %w", session.ErrTransportUnavailable, err)
			}
			return res
		}
		p.client = c
		if p.log != nil {
			p.log.Info().Str("device", p.cfg.DeviceID).Msg("connected")
		}
	}

	reading, err := p.client.PollStatus(ctx)
	res.Identity, res.HasIdentity = p.client.Identity()
	if err != nil {
		res.Err = err
		switch {
		case errors.Is(err, session.ErrTransportUnavailable):
			p.discard("connection dropped")
		case errors.Is(err, session.ErrResponseTimeout):
			p.timeouts++
			if p.timeouts >= MaxTimeouts {
				p.discard("device stopped answering")
			}
		default:
			p.timeouts = 0
		}
		return res
	}
	p.timeouts = 0

	// Commit only if the whole cycle succeeded
	res.Reading = reading
	return res
}

// Close releases the current client, if any.
func (p *Poller) Close() error {
	p.timeouts = 0
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *Poller) discard(reason string) {
	if err := p.Close(); err != nil && p.log != nil {
		p.log.Warn().Str("device", p.cfg.DeviceID).Err(err).Msg("close failed")
	}
	if p.log != nil {
		p.log.Info().Str("device", p.cfg.DeviceID).Str("reason", reason).Msg("client discarded, will redial")
	}
}
