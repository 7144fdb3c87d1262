//go:build !linux

package power

import (
	"context"
	"errors"
)

// Linux sysfs defaults.
const (
	DefaultStatePath = "/sys/power/state"
	DefaultState     = "mem"
)

// SysfsSuspender is not available on non-Linux platforms.
type SysfsSuspender struct {
	StatePath  string
	State      string
	WakeupPath string
}

// NewSysfsSuspender returns a suspender that always fails.
func NewSysfsSuspender(statePath, state, wakeupPath string) *SysfsSuspender {
	return &SysfsSuspender{StatePath: statePath, State: state, WakeupPath: wakeupPath}
}

// ConfigureWake is not implemented on non-Linux platforms.
func (s *SysfsSuspender) ConfigureWake(pin, level int) error {
	return errors.New("power: not supported on this platform (requires Linux)")
}

// Suspend is not implemented on non-Linux platforms.
func (s *SysfsSuspender) Suspend(ctx context.Context) error {
	return errors.New("power: not supported on this platform (requires Linux)")
}
