//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// OpenRealSource returns an error on non-Linux platforms.
func OpenRealSource(chip string, offset int, debounce time.Duration, h EdgeHandler) (*RealSource, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (s *RealSource) Close() error {
	return nil
}

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// OpenRealOutput returns an error on non-Linux platforms.
func OpenRealOutput(chip string, offset int) (*RealOutput, error) {
	return nil, errUnsupported
}

// SetValue is not implemented on non-Linux platforms.
func (o *RealOutput) SetValue(v int) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}
