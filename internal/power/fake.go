package power

import (
	"context"
	"log/slog"
	"sync"
)

// WakeConfig is a recorded ConfigureWake call.
type WakeConfig struct {
	Pin   int
	Level int
}

// FakeSuspender records calls instead of sleeping. It is also used for
// dry-run mode, where it only logs.
type FakeSuspender struct {
	mu sync.Mutex

	// Wakes contains all ConfigureWake calls.
	Wakes []WakeConfig
	// Suspends counts Suspend calls.
	Suspends int

	// WakeError, if set, is returned by ConfigureWake.
	WakeError error
	// SuspendError, if set, is returned by Suspend.
	SuspendError error

	logger *slog.Logger
}

// NewFakeSuspender creates a FakeSuspender. logger may be nil.
func NewFakeSuspender(logger *slog.Logger) *FakeSuspender {
	return &FakeSuspender{logger: logger}
}

// ConfigureWake records the wake configuration.
func (f *FakeSuspender) ConfigureWake(pin, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WakeError != nil {
		return f.WakeError
	}
	f.Wakes = append(f.Wakes, WakeConfig{Pin: pin, Level: level})
	return nil
}

// Suspend records the call and returns immediately.
func (f *FakeSuspender) Suspend(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SuspendError != nil {
		return f.SuspendError
	}
	f.Suspends++
	if f.logger != nil {
		f.logger.Info("dry-run: suspend skipped")
	}
	return nil
}

// SuspendCount returns the number of successful Suspend calls.
func (f *FakeSuspender) SuspendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Suspends
}

// WakeConfigs returns a copy of the recorded ConfigureWake calls.
func (f *FakeSuspender) WakeConfigs() []WakeConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WakeConfig(nil), f.Wakes...)
}
