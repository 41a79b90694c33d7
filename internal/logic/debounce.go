// Package logic contains pure edge-filtering logic for the tachometer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Duration parameters.
package logic

import (
	"sync/atomic"
	"time"
)

// Debouncer coalesces edges that arrive closer together than a minimum
// interval. The first edge of a burst is kept; the rest are dropped until the
// interval has passed since the last kept edge.
// Accept is not safe for concurrent use; it lives on the single edge
// goroutine. Rejected may be read from anywhere.
type Debouncer struct {
	interval time.Duration
	last     time.Duration
	primed   bool
	rejected atomic.Uint64
}

// NewDebouncer creates a Debouncer. An interval of zero or less keeps every
// edge.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Accept reports whether the edge at ts should be counted.
func (d *Debouncer) Accept(ts time.Duration) bool {
	if d.interval > 0 && d.primed && ts-d.last < d.interval {
		d.rejected.Add(1)
		return false
	}
	d.last = ts
	d.primed = true
	return true
}

// Rejected returns the number of edges dropped so far.
func (d *Debouncer) Rejected() uint64 {
	return d.rejected.Load()
}

// Interval returns the minimum spacing between accepted edges.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Filter wraps next so that only accepted edges reach it.
func (d *Debouncer) Filter(next func(ts time.Duration)) func(ts time.Duration) {
	return func(ts time.Duration) {
		if d.Accept(ts) {
			next(ts)
		}
	}
}
