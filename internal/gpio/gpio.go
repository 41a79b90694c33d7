// Package gpio provides rising-edge input and pulse output with hardware
// abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// EdgeHandler is called once per rising edge with the kernel timestamp of the
// edge on the monotonic clock (see Monotonic).
// It runs on the event goroutine and must return quickly without blocking.
type EdgeHandler func(ts time.Duration)

// EdgeSource delivers rising edges to the handler it was opened with until
// it is closed.
type EdgeSource interface {
	// Close stops edge delivery and releases the line.
	Close() error
}

// Output drives a single output line.
type Output interface {
	// SetValue sets the line to 0 or 1.
	SetValue(v int) error

	// Close releases the line.
	Close() error
}

// Defaults for the tachometer input.
const (
	DefaultChip     = "gpiochip0"
	DefaultLine     = 15
	DefaultDebounce = 10 * time.Millisecond
)
