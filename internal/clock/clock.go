// Package clock provides the monotonic time source shared by the edge
// detector, the press classifier and the sleep transition.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reads a monotonic offset and waits for durations.
type Clock interface {
	// Now returns the current monotonic offset. Only differences are meaningful.
	Now() time.Duration
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fake is a manually advanced clock. Sleep advances the clock instead of
// blocking, so polling loops run instantly and deterministically.
type Fake struct {
	mu  sync.Mutex
	now time.Duration

	// OnSleep, if set, is called after each Sleep advance with the new time.
	OnSleep func(now time.Duration)
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Duration) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Duration) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) time.Duration {
	f.mu.Lock()
	f.now += d
	now := f.now
	f.mu.Unlock()
	return now
}

// Sleep advances the clock by d. It returns early only if ctx is already done.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := f.Advance(d)
	if f.OnSleep != nil {
		f.OnSleep(now)
	}
	return nil
}
