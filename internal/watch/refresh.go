// Package watch keeps a terminal view in step with a stream of board events.
package watch

import (
	"context"
	"time"
)

// DefaultInterval is the minimum time between two renders.
const DefaultInterval = 200 * time.Millisecond

// Refresher coalesces bursts of notifications into at most one render per
// interval. Notify never blocks.
type Refresher struct {
	interval time.Duration
	render   func()
	pending  chan struct{}
}

// NewRefresher returns a refresher calling render at most once per interval.
// A non-positive interval uses DefaultInterval.
func NewRefresher(interval time.Duration, render func()) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		interval: interval,
		render:   render,
		pending:  make(chan struct{}, 1),
	}
}

// Notify marks the view as stale.
func (r *Refresher) Notify() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Run renders on every tick that follows at least one Notify, until ctx is
// cancelled. A pending render is flushed before returning.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil

		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Refresher) flush() {
	select {
	case <-r.pending:
		r.render()
	default:
	}
}
