package querysession

import (
	"context"
	"time"

	"dota-report-be/internal/entity"
)

// poller asks the backend for progress of one session: once after
// initialDelay, then every interval until stopped.
type poller struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

func newPoller(parent context.Context, generation uint64) *poller {
	ctx, cancel := context.WithCancel(parent)
	return &poller{generation: generation, ctx: ctx, cancel: cancel}
}

// stop never blocks. A reading already in flight is dropped by the caller's
// identity check.
func (p *poller) stop() {
	p.cancel()
}

func (p *poller) run(backend Backend, initialDelay, interval time.Duration, deliver func(entity.Progress, error)) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-p.ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		progress, err := backend.Progress(p.ctx)
		if p.ctx.Err() != nil {
			return
		}
		deliver(progress, err)

		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
