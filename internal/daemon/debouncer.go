package daemon

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications into single
// rebuild triggers: a rebuild fires after a quiet window with no new
// notifications, or once the max delay since the first notification
// elapses, whichever comes first.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration

	mu      sync.Mutex
	pending bool
	firstAt time.Time
	lastAt  time.Time

	out chan struct{}
}

// NewDebouncer creates a debouncer. quiet must be > 0; maxDelay <= 0
// defaults to 10x the quiet window.
func NewDebouncer(quiet, maxDelay time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 10 * quiet
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		out:      make(chan struct{}, 1),
	}
}

// Notify records a change notification.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if !d.pending {
		d.pending = true
		d.firstAt = now
	}
	d.lastAt = now
}

// C delivers one value per coalesced rebuild trigger.
func (d *Debouncer) C() <-chan struct{} {
	return d.out
}

// Run evaluates pending notifications until the context is canceled.
func (d *Debouncer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.quiet / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.shouldFire(time.Now()) {
				select {
				case d.out <- struct{}{}:
				default: // a trigger is already queued
				}
			}
		}
	}
}

func (d *Debouncer) shouldFire(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return false
	}
	if now.Sub(d.lastAt) >= d.quiet || now.Sub(d.firstAt) >= d.maxDelay {
		d.pending = false
		return true
	}
	return false
}
