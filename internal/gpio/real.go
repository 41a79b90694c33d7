//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "gpio-tach"

// RealSource watches an input line for rising edges using the Linux GPIO
// character device.
type RealSource struct {
	line *gpiocdev.Line
}

// OpenRealSource requests offset on chip as a rising-edge input and feeds
// every edge to h. A positive debounce is applied by the kernel.
func OpenRealSource(chip string, offset int, debounce time.Duration, h EdgeHandler) (*RealSource, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				h(evt.Timestamp)
			}
		}),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %s:%d: %w", chip, offset, err)
	}
	return &RealSource{line: line}, nil
}

// Close releases the line.
// The line is reconfigured to a plain input with pull-down first, matching the
// Pi boot default, so external hardware sees a clean state on shutdown.
func (s *RealSource) Close() error {
	var errs []error
	if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithoutEdges); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure input line: %w", err))
	}
	if err := s.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutput drives an output line using the Linux GPIO character device.
type RealOutput struct {
	line *gpiocdev.Line
}

// OpenRealOutput requests offset on chip as an output, initially high.
func OpenRealOutput(chip string, offset int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.WithConsumer(consumer), gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("request output line %s:%d: %w", chip, offset, err)
	}
	return &RealOutput{line: line}, nil
}

// SetValue sets the line to 0 or 1.
func (o *RealOutput) SetValue(v int) error {
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set output line: %w", err)
	}
	return nil
}

// Close returns the line to an input with pull-down and releases it.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure output line: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close output line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
