// internal/monitor/monitor.go

// Package monitor owns the per-device status snapshot and drives delivery.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/battery-monitor/internal/battery"
	"github.com/tamzrod/battery-monitor/internal/metrics"
	"github.com/tamzrod/battery-monitor/internal/poller"
	"github.com/tamzrod/battery-monitor/internal/status"
	"github.com/tamzrod/battery-monitor/internal/writer"
)

// Source produces poll results until ctx ends.
type Source interface {
	Run(ctx context.Context, out chan<- poller.PollResult)
}

// Config is the runtime config of one device pipeline.
type Config struct {
	DeviceID string
	Battery  battery.Range

	// Interval is the poll interval. A healthy device with no result for
	// two intervals is reported stale.
	Interval time.Duration
}

// Pipeline is the runner-owned state of one device:
// poll results in, status snapshot out.
type Pipeline struct {
	cfg     Config
	source  Source
	writer  writer.Writer // nil disables register delivery
	metrics *metrics.Metrics
	log     types.Logger

	mu          sync.Mutex
	snap        status.Snapshot
	lastSuccess time.Time
}

func New(cfg Config, source Source, w writer.Writer, m *metrics.Metrics, log types.Logger) (*Pipeline, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("monitor: device id required")
	}
	if source == nil {
		return nil, errors.New("monitor: source required")
	}
	return &Pipeline{
		cfg:     cfg,
		source:  source,
		writer:  w,
		metrics: m,
		log:     log,
		snap:    status.Snapshot{Health: status.HealthUnknown, StateOfCharge: status.SoCUnknown},
	}, nil
}

// Snapshot returns the current device snapshot.
func (p *Pipeline) Snapshot() status.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Run starts the source and processes results plus a 1 Hz seconds ticker
// until ctx ends.
func (p *Pipeline) Run(ctx context.Context) {
	out := make(chan poller.PollResult)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.source.Run(ctx, out)
	}()
	defer wg.Wait()

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert).
	p.deliver(p.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-out:
			p.deliver(p.Apply(res))

		case now := <-secTicker.C:
			if s, changed := p.Tick(now); changed {
				p.deliver(s)
			}
		}
	}
}

// Apply folds one poll result into the snapshot and returns the new snapshot.
func (p *Pipeline) Apply(res poller.PollResult) status.Snapshot {
	soc, socKnown := battery.StateOfCharge(res.Reading.Voltage, p.cfg.Battery)
	p.metrics.ObservePoll(res, soc, socKnown)

	p.mu.Lock()
	defer p.mu.Unlock()

	if res.HasIdentity {
		p.snap.SetIdentity(res.Identity)
	}

	if res.Err == nil {
		// Recovery / OK
		if p.snap.Health != status.HealthOK && p.log != nil {
			p.log.Info().Str("device", p.cfg.DeviceID).Msg("device ok")
		}
		p.snap.Health = status.HealthOK
		p.snap.LastErrorCode = 0
		p.snap.SecondsInError = 0
		p.snap.SetReading(res.Reading, soc, socKnown)
		p.lastSuccess = res.At

		if p.log != nil {
			p.log.Info().
				Str("device", p.cfg.DeviceID).
				Int("centivolts", int(p.snap.Voltage)).
				Int("soc", int(p.snap.StateOfCharge)).
				Int("flags", int(p.snap.Flags)).
				Msg("poll ok")
		}
	} else {
		// Error. Reading slots keep the last good values.
		code := status.ErrorCode(res.Err)
		p.snap.Health = status.HealthError
		p.snap.LastErrorCode = code

		// NOTE: seconds_in_error increments on the 1Hz ticker only.

		if p.log != nil {
			p.log.Error().
				Str("device", p.cfg.DeviceID).
				Int("code", int(code)).
				Err(res.Err).
				Msg("poll failed")
		}
	}

	p.metrics.ObserveStatus(p.cfg.DeviceID, p.snap)
	return p.snap
}

// Tick advances the seconds-in-error counter and the stale check.
// It reports whether the snapshot changed.
func (p *Pipeline) Tick(now time.Time) (status.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := false

	if p.snap.Health == status.HealthOK && p.cfg.Interval > 0 &&
		!p.lastSuccess.IsZero() && now.Sub(p.lastSuccess) > 2*p.cfg.Interval {
		p.snap.Health = status.HealthStale
		changed = true
		if p.log != nil {
			p.log.Warn().Str("device", p.cfg.DeviceID).Msg("no poll result, marking stale")
		}
	}

	// Tick 1 Hz while not OK. HARD INVARIANT: seconds_in_error MUST NOT wrap.
	if p.snap.Health != status.HealthOK && p.snap.SecondsInError < 65535 {
		p.snap.SecondsInError++
		changed = true
	}

	if changed {
		p.metrics.ObserveStatus(p.cfg.DeviceID, p.snap)
	}
	return p.snap, changed
}

func (p *Pipeline) deliver(s status.Snapshot) {
	if p.writer == nil {
		return
	}
	if err := p.writer.WriteStatus(s); err != nil {
		p.metrics.ObserveWriteError(p.cfg.DeviceID)
		if p.log != nil {
			p.log.Error().Str("device", p.cfg.DeviceID).Err(err).Msg("status write failed")
		}
	}
}
