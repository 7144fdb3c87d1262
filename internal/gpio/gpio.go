// Package gpio provides button input with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the periph
// implementation uses periph.io, and the fake allows testing without hardware.
package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/press-sensor/internal/clock"
)

// EdgeHandler is called once per falling edge with the edge's monotonic
// timestamp. It runs on the backend's event goroutine and must not block.
type EdgeHandler func(ts time.Duration)

// Input is a single active-low button line.
type Input interface {
	// Pressed returns the logical state of the button.
	// The line is pulled up: raw low = pressed.
	Pressed() (bool, error)

	// Watch installs the falling-edge handler. Installing a new handler
	// replaces the previous one.
	Watch(h EdgeHandler) error

	// Close releases GPIO resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendCdev   = "cdev"
	BackendPeriph = "periph"
)

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Open requests pin on the named backend.
func Open(backend, chip string, pin int, clk clock.Clock) (Input, error) {
	switch backend {
	case BackendCdev, "":
		in, err := NewCdevInput(chip, pin)
		if err != nil {
			return nil, err
		}
		return in, nil
	case BackendPeriph:
		in, err := NewPeriphInput(pin, clk)
		if err != nil {
			return nil, err
		}
		return in, nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", backend)
}
