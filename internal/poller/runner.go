// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls once immediately, then on every tick, and emits PollResult on
// the provided channel. One goroutine per device. No overlap. No retries.
// The current client is closed when ctx ends.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	defer p.Close()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		res := p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case out <- res:
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
