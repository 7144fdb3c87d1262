package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/press-sensor/internal/clock"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWaitTimeout bounds each WaitForEdge call so Close can stop the watcher.
const edgeWaitTimeout = time.Second

// PeriphInput reads a button through periph.io. periph does not report edge
// timestamps, so edges are stamped with clk when WaitForEdge returns.
type PeriphInput struct {
	pin   pgpio.PinIO
	name  string
	clock clock.Clock

	mu      sync.Mutex
	handler EdgeHandler
	stop    chan struct{}
	done    chan struct{}
}

// NewPeriphInput opens BCM pin as a pulled-up input with falling-edge detection.
func NewPeriphInput(pin int, clk clock.Clock) (*PeriphInput, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("open pin %s: not found", name)
	}
	if err := p.In(pgpio.PullUp, pgpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure pin %s: %w", name, err)
	}
	return &PeriphInput{pin: p, name: name, clock: clk}, nil
}

// Pressed returns true when the pin reads low.
func (in *PeriphInput) Pressed() (bool, error) {
	return in.pin.Read() == pgpio.Low, nil
}

// Watch installs the handler and starts the edge goroutine on first use.
func (in *PeriphInput) Watch(h EdgeHandler) error {
	if h == nil {
		return errors.New("gpio: nil edge handler")
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.handler = h
	if in.stop != nil {
		return nil
	}
	in.stop = make(chan struct{})
	in.done = make(chan struct{})
	go in.watch(in.stop, in.done)
	return nil
}

func (in *PeriphInput) watch(stop, done chan struct{}) {
	defer close(done)
	for {
		edge := in.pin.WaitForEdge(edgeWaitTimeout)
		select {
		case <-stop:
			return
		default:
		}
		if !edge {
			continue
		}
		ts := in.clock.Now()
		in.mu.Lock()
		h := in.handler
		in.mu.Unlock()
		if h != nil {
			h(ts)
		}
	}
}

// Close stops the watcher and disables edge detection.
func (in *PeriphInput) Close() error {
	in.mu.Lock()
	stop, done := in.stop, in.done
	in.stop, in.done = nil, nil
	in.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	var errs []error
	if err := in.pin.In(pgpio.PullUp, pgpio.NoEdge); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %s: %w", in.name, err))
	}
	if err := in.pin.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt pin %s: %w", in.name, err))
	}
	return errors.Join(errs...)
}
