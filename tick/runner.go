package tick

import (
	"context"
	"time"
)

const defaultInterval = 50 * time.Millisecond

// Runner drives registered hooks on a fixed timestep. It is configured
// before Run and must not be mutated afterwards.
type Runner struct {
	interval time.Duration
	startup  []func(context.Context) error
	update   []func(context.Context)
}

// NewRunner creates a runner ticking at the given interval. A non-positive
// interval selects a default of 50ms (20 ticks per second).
func NewRunner(interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{interval: interval}
}

// OnStartup registers a hook executed once, in registration order, before
// the first tick. A startup error aborts the run.
func (r *Runner) OnStartup(f func(context.Context) error) {
	r.startup = append(r.startup, f)
}

// OnUpdate registers a hook executed every tick, in registration order.
func (r *Runner) OnUpdate(f func(context.Context)) {
	r.update = append(r.update, f)
}

// Run blocks until the context is cancelled or a startup hook fails. Update
// hooks run sequentially on a single goroutine; a slow tick delays the next
// one rather than overlapping it.
func (r *Runner) Run(ctx context.Context) error {
	for _, f := range r.startup {
		if err := f(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, f := range r.update {
				f(ctx)
			}
		}
	}
}
