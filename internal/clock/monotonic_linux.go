//go:build linux

package clock

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic reads CLOCK_MONOTONIC, the clock gpiocdev stamps line events with,
// so edge timestamps and poll timestamps can be differenced directly.
type Monotonic struct{}

// NewMonotonic returns the system monotonic clock.
func NewMonotonic() Monotonic {
	return Monotonic{}
}

// Now returns CLOCK_MONOTONIC as an offset since boot.
func (Monotonic) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is always present on Linux.
		panic("clock_gettime(CLOCK_MONOTONIC): " + err.Error())
	}
	return time.Duration(ts.Nano())
}

// Sleep waits for d or until ctx is done.
func (Monotonic) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
