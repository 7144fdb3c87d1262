//go:build !linux

package gpio

import "errors"

// CdevInput is not available on non-Linux platforms.
type CdevInput struct{}

// NewCdevInput returns an error on non-Linux platforms.
func NewCdevInput(chip string, pin int) (*CdevInput, error) {
	return nil, errors.New("gpio: cdev backend not supported on this platform (requires Linux)")
}

// Pressed is not implemented on non-Linux platforms.
func (in *CdevInput) Pressed() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Watch is not implemented on non-Linux platforms.
func (in *CdevInput) Watch(h EdgeHandler) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (in *CdevInput) Close() error {
	return nil
}
