// internal/session/session.go
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/battery-monitor/internal/protocol"
)

// DefaultTimeout is the per-request response timeout.
const DefaultTimeout = 10 * time.Second

// Transport is the connection capability a session runs on.
// Its connect/disconnect lifecycle belongs to the caller.
type Transport interface {
	// Write sends one packet to the device.
	Write(p []byte) error

	// Subscribe registers fn for inbound notifications.
	// fn may be called from any goroutine.
	Subscribe(fn func([]byte)) error

	// Done is closed when the connection is gone.
	Done() <-chan struct{}
}

// Config is the runtime config of one session.
type Config struct {
	DeviceID string
	Timeout  time.Duration
}

// waitSlot holds the single outstanding request.
// ch is nil when nothing is armed. Arming clears last.
type waitSlot struct {
	expect protocol.Command
	ch     chan []byte
	last   []byte
}

// Session coordinates request/response exchanges with one device.
// The device identity is fetched at most once per Session.
type Session struct {
	cfg Config
	tr  Transport
	log types.Logger

	// cycle serializes exchanges: one request outstanding at a time.
	cycle sync.Mutex

	mu       sync.Mutex
	slot     waitSlot
	identity *protocol.DeviceIdentity
	state    State
}

// New creates a session and subscribes it to tr's notifications.
func New(cfg Config, tr Transport, log types.Logger) (*Session, error) {
	if tr == nil {
		return nil, errors.New("session: transport required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Session{
		cfg: cfg,
		tr:  tr,
		log: log,
	}

	if err := tr.Subscribe(s.HandleNotification); err != nil {
		return nil, fmt.Errorf("%w: subscribe: %w", ErrTransportUnavailable, err)
	}
	return s, nil
}

// FetchDeviceIdentity returns the cached identity, or performs one
// device-info exchange and caches the result on success.
func (s *Session) FetchDeviceIdentity(ctx context.Context) (protocol.DeviceIdentity, error) {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	return s.fetchDeviceIdentity(ctx)
}

// PollStatus fetches the identity if needed, then performs one status exchange.
// An identity failure aborts the cycle before any status request is sent.
func (s *Session) PollStatus(ctx context.Context) (protocol.StatusReading, error) {
	s.cycle.Lock()
	defer s.cycle.Unlock()

	if _, err := s.fetchDeviceIdentity(ctx); err != nil {
		return protocol.StatusReading{}, err
	}

	raw, err := s.exchange(ctx, protocol.CmdStatusPoll, StateAwaitingStatus)
	if err != nil {
		return protocol.StatusReading{}, err
	}

	reading, err := protocol.ParseStatus(raw)
	if err != nil {
		s.setState(StateFailed)
		return protocol.StatusReading{}, fmt.Errorf("%w: status: %w", ErrInvalidResponse, err)
	}

	s.setState(StateIdle)
	if s.log != nil {
		s.log.Debug().
			Str("device", s.cfg.DeviceID).
			Float64("voltage", reading.Voltage).
			Bool("battery_ok", reading.BatteryOK).
			Bool("charging", reading.Charging).
			Msg("status received")
	}
	return reading, nil
}

// HandleNotification is the transport callback. It records the bytes and
// completes the armed wait, if any. Each armed wait consumes exactly one
// notification; later ones are recorded and otherwise dropped.
func (s *Session) HandleNotification(data []byte) {
	buf := bytes.Clone(data)

	s.mu.Lock()
	s.slot.last = buf
	ch := s.slot.ch
	expect := s.slot.expect
	s.slot.ch = nil
	s.mu.Unlock()

	if ch == nil {
		if s.log != nil {
			s.log.Debug().Str("device", s.cfg.DeviceID).Int("len", len(buf)).Msg("notification with no pending request")
		}
		return
	}

	if s.log != nil {
		if got, ok := protocol.CommandOf(buf); !ok || got != expect {
			s.log.Debug().
				Str("device", s.cfg.DeviceID).
				Str("expect", expect.String()).
				Int("len", len(buf)).
				Msg("notification does not match pending request")
		}
	}

	// Buffered and handed out once, so this never blocks.
	ch <- buf
}

// Identity returns the cached identity, if any.
func (s *Session) Identity() (protocol.DeviceIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return protocol.DeviceIdentity{}, false
	}
	return *s.identity, true
}

// LastNotification returns a copy of the most recent inbound bytes.
func (s *Session) LastNotification() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.slot.last)
}

// State returns the current cycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) fetchDeviceIdentity(ctx context.Context) (protocol.DeviceIdentity, error) {
	if id, ok := s.Identity(); ok {
		return id, nil
	}

	raw, err := s.exchange(ctx, protocol.CmdDeviceInfo, StateAwaitingDeviceIdentity)
	if err != nil {
		return protocol.DeviceIdentity{}, err
	}

	id, err := protocol.ParseDeviceIdentity(raw)
	if err != nil {
		s.setState(StateFailed)
		return protocol.DeviceIdentity{}, fmt.Errorf("%w: device info: %w", ErrInvalidResponse, err)
	}

	s.mu.Lock()
	s.identity = &id
	s.state = StateIdle
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info().
			Str("device", s.cfg.DeviceID).
			Str("model", id.Model).
			Str("hw", id.HardwareVersion).
			Str("fw", id.FirmwareVersion).
			Msg("device identity")
	}
	return id, nil
}

// exchange writes cmd and waits for one notification.
// The slot is armed before the write so an immediate reply is not lost;
// the timeout starts once the write has returned.
func (s *Session) exchange(ctx context.Context, cmd protocol.Command, st State) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	select {
	case <-s.tr.Done():
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: connection closed", ErrTransportUnavailable)
	default:
	}

	ch := s.arm(cmd.Response(), st)
	defer s.disarm()

	if err := s.tr.Write(protocol.Build(cmd, nil)); err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: write %s: %w", ErrTransportUnavailable, cmd, err)
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case raw := <-ch:
		return raw, nil
	case <-timer.C:
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: %s after %s", ErrResponseTimeout, cmd, s.cfg.Timeout)
	case <-ctx.Done():
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-s.tr.Done():
		s.setState(StateFailed)
		return nil, fmt.Errorf("%w: connection closed while awaiting %s", ErrTransportUnavailable, cmd.Response())
	}
}

func (s *Session) arm(expect protocol.Command, st State) chan []byte {
	ch := make(chan []byte, 1)

	s.mu.Lock()
	s.slot = waitSlot{expect: expect, ch: ch}
	s.state = st
	s.mu.Unlock()

	return ch
}

func (s *Session) disarm() {
	s.mu.Lock()
	s.slot.ch = nil
	s.slot.expect = 0
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
