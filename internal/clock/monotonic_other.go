//go:build !linux

package clock

import (
	"context"
	"time"
)

var processStart = time.Now()

// Monotonic measures time since process start using the runtime's monotonic
// reading. Line event timestamps are not available off Linux.
type Monotonic struct{}

// NewMonotonic returns the process monotonic clock.
func NewMonotonic() Monotonic {
	return Monotonic{}
}

// Now returns the time since process start.
func (Monotonic) Now() time.Duration {
	return time.Since(processStart)
}

// Sleep waits for d or until ctx is done.
func (Monotonic) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
