//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// CdevInput reads a button from actual hardware using the Linux GPIO
// character device. Edge timestamps come from the kernel (CLOCK_MONOTONIC).
type CdevInput struct {
	pin     int
	line    *gpiocdev.Line
	handler atomic.Pointer[EdgeHandler]
}

// NewCdevInput requests pin on chip as a pulled-up input with falling-edge
// detection.
func NewCdevInput(chip string, pin int) (*CdevInput, error) {
	if chip == "" {
		chip = DefaultChip
	}
	in := &CdevInput{pin: pin}

	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(in.onEvent),
	)
	if err != nil {
		return nil, fmt.Errorf("request pin %d on %s: %w", pin, chip, err)
	}
	in.line = line
	return in, nil
}

func (in *CdevInput) onEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	if h := in.handler.Load(); h != nil {
		(*h)(evt.Timestamp)
	}
}

// Pressed returns true when the line reads low.
func (in *CdevInput) Pressed() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", in.pin, err)
	}
	return v == 0, nil
}

// Watch installs the falling-edge handler.
func (in *CdevInput) Watch(h EdgeHandler) error {
	if h == nil {
		return errors.New("gpio: nil edge handler")
	}
	in.handler.Store(&h)
	return nil
}

// Close releases GPIO resources.
// Edge detection is removed before closing so the line is left as a plain
// pulled-up input, matching Pi boot defaults for button pins.
func (in *CdevInput) Close() error {
	if in.line == nil {
		return nil
	}
	in.handler.Store(nil)

	var errs []error
	if err := in.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", in.pin, err))
	}
	if err := in.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", in.pin, err))
	}
	return errors.Join(errs...)
}
