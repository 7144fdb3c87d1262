//go:build linux

package power

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Linux sysfs defaults.
const (
	DefaultStatePath = "/sys/power/state"
	DefaultState     = "mem"
)

// SysfsSuspender suspends through /sys/power/state.
//
// Wake-source configuration is a single write of "enabled" to WakeupPath.
// A "{pin}" placeholder in WakeupPath is replaced with the pin number. The
// wake level itself is fixed by the device tree (gpio-keys active-low), so
// only level 0 is accepted.
type SysfsSuspender struct {
	StatePath  string
	State      string
	WakeupPath string
}

// NewSysfsSuspender creates a SysfsSuspender with defaults for empty fields.
func NewSysfsSuspender(statePath, state, wakeupPath string) *SysfsSuspender {
	if statePath == "" {
		statePath = DefaultStatePath
	}
	if state == "" {
		state = DefaultState
	}
	return &SysfsSuspender{StatePath: statePath, State: state, WakeupPath: wakeupPath}
}

// ConfigureWake enables the wake source for pin.
func (s *SysfsSuspender) ConfigureWake(pin, level int) error {
	if level != 0 {
		return fmt.Errorf("wake level %d not supported (active-low only)", level)
	}
	if s.WakeupPath == "" {
		return nil
	}
	path := strings.ReplaceAll(s.WakeupPath, "{pin}", strconv.Itoa(pin))
	if err := os.WriteFile(path, []byte("enabled"), 0); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Suspend flushes filesystems and writes the sleep state. The write blocks
// until the system resumes.
func (s *SysfsSuspender) Suspend(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unix.Sync()

	fd, err := unix.Open(s.StatePath, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.StatePath, err)
	}
	defer unix.Close(fd)

	if _, err := unix.Write(fd, []byte(s.State)); err != nil {
		return fmt.Errorf("write %q to %s: %w", s.State, s.StatePath, err)
	}
	return nil
}
