// Package poller implements the shared polling layer: a rate-limited fetch
// gate and a single-flight poller that caches raw endpoint payloads for all
// registered consumers.
package poller

import (
	"context"
	"time"
)

const (
	// DefaultSlots bounds concurrent outbound requests.
	DefaultSlots = 2

	// DefaultSettle is how long a slot stays occupied after a request
	// finishes, spacing out even fully concurrent callers.
	DefaultSettle = 200 * time.Millisecond
)

// Limiter is a counting admission gate for outbound fetches. At most slots
// operations run at once, and each completed operation (success or failure)
// holds its slot for the settle period before releasing it.
type Limiter struct {
	slots  chan struct{}
	settle time.Duration
}

// NewLimiter creates a Limiter. Non-positive arguments fall back to the
// defaults.
func NewLimiter(slots int, settle time.Duration) *Limiter {
	if slots <= 0 {
		slots = DefaultSlots
	}
	if settle < 0 {
		settle = DefaultSettle
	}
	return &Limiter{
		slots:  make(chan struct{}, slots),
		settle: settle,
	}
}

// Do runs fn once a slot is available. The error from fn is returned as-is;
// the limiter never retries.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	defer time.AfterFunc(l.settle, func() { <-l.slots })
	return fn()
}
