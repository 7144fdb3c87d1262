package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeInput is a test double with a settable level and manually fired edges.
type FakeInput struct {
	mu      sync.Mutex
	pressed bool
	handler EdgeHandler

	// PressedFunc, if set, overrides the stored level. Tests use it to derive
	// the level from a fake clock.
	PressedFunc func() bool

	// ReadError, if set, will be returned by Pressed().
	ReadError error

	// Reads counts calls to Pressed().
	Reads int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeInput creates a FakeInput in the released state.
func NewFakeInput() *FakeInput {
	return &FakeInput{}
}

// SetPressed sets the level returned by Pressed.
func (f *FakeInput) SetPressed(p bool) {
	f.mu.Lock()
	f.pressed = p
	f.mu.Unlock()
}

// Pressed returns the scripted level.
func (f *FakeInput) Pressed() (bool, error) {
	f.mu.Lock()
	f.Reads++
	err := f.ReadError
	fn := f.PressedFunc
	p := f.pressed
	f.mu.Unlock()

	if err != nil {
		return false, err
	}
	if fn != nil {
		return fn(), nil
	}
	return p, nil
}

// ReadCount returns the number of Pressed calls so far.
func (f *FakeInput) ReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads
}

// Watch stores the handler.
func (f *FakeInput) Watch(h EdgeHandler) error {
	if h == nil {
		return errors.New("gpio: nil edge handler")
	}
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return nil
}

// Edge fires a falling edge at ts. It reports false if no handler is installed.
func (f *FakeInput) Edge(ts time.Duration) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(ts)
	return true
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
