// Package power implements the transition into low power after a long press.
package power

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/press-sensor/internal/clock"
)

// Defaults from the press firmware.
const (
	DefaultGrace       = 500 * time.Millisecond
	DefaultReleasePoll = 100 * time.Millisecond
)

// Suspender is the platform sleep primitive.
type Suspender interface {
	// ConfigureWake arms wake-up on pin reaching level.
	ConfigureWake(pin, level int) error
	// Suspend enters low power. It returns after resume, or with an error if
	// the platform refused.
	Suspend(ctx context.Context) error
}

// LevelReader reports whether the wake button is still held.
type LevelReader interface {
	Pressed() (bool, error)
}

// Config configures a Transition.
type Config struct {
	Grace time.Duration
	// WaitForRelease polls the button until released before suspending.
	WaitForRelease bool
	ReleasePoll    time.Duration
}

// Transition performs grace wait, optional release wait, wake configuration
// and suspend, in that order.
type Transition struct {
	cfg       Config
	clock     clock.Clock
	suspender Suspender
	input     LevelReader
	logger    *slog.Logger
}

// NewTransition creates a Transition. input is only used when
// cfg.WaitForRelease is set and may be nil otherwise.
func NewTransition(cfg Config, clk clock.Clock, s Suspender, input LevelReader, logger *slog.Logger) *Transition {
	if cfg.Grace < 0 {
		cfg.Grace = 0
	}
	if cfg.ReleasePoll <= 0 {
		cfg.ReleasePoll = DefaultReleasePoll
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transition{
		cfg:       cfg,
		clock:     clk,
		suspender: s,
		input:     input,
		logger:    logger,
	}
}

// EnterLowPower suspends the system with wake armed on pin reaching level.
func (t *Transition) EnterLowPower(ctx context.Context, pin, level int) error {
	t.logger.Debug("sleep transition starting", "grace", t.cfg.Grace, "wake_pin", pin, "wake_level", level)
	if err := t.clock.Sleep(ctx, t.cfg.Grace); err != nil {
		return fmt.Errorf("grace wait: %w", err)
	}

	if t.cfg.WaitForRelease && t.input != nil {
		if err := t.waitForRelease(ctx); err != nil {
			return err
		}
	}

	if err := t.suspender.ConfigureWake(pin, level); err != nil {
		return fmt.Errorf("configure wake on pin %d: %w", pin, err)
	}
	if err := t.suspender.Suspend(ctx); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	return nil
}

func (t *Transition) waitForRelease(ctx context.Context) error {
	for {
		pressed, err := t.input.Pressed()
		if err != nil {
			return fmt.Errorf("wait for release: %w", err)
		}
		if !pressed {
			return nil
		}
		t.logger.Debug("waiting for button release")
		if err := t.clock.Sleep(ctx, t.cfg.ReleasePoll); err != nil {
			return fmt.Errorf("wait for release: %w", err)
		}
	}
}

// ForPin binds a Transition to one button's input.
func (t *Transition) ForPin(input LevelReader) *Transition {
	c := *t
	c.input = input
	return &c
}
