// Package tach implements the sliding-window edge counter behind the
// tachometer: every edge is stored as the instant it stops counting
// (occurrence + window), and the live count is the number of stored expiries
// that have not yet passed.
//
// Timestamps are durations on a single monotonic clock (the clock the GPIO
// character device stamps edges with). The package never reads a clock itself.
package tach

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxCapacity is the largest request that is rounded. Requests up to it
	// round up to a power of two, so 32769 through 65535 all get 65536.
	// Only requests above it are clamped, to a ring of exactly MaxCapacity.
	MaxCapacity = 65535

	// DefaultCapacity is the ring size used by the daemon.
	DefaultCapacity = 256

	// DefaultWindow is the trailing window used by the daemon.
	DefaultWindow = time.Second
)

var (
	// ErrCapacity is returned by New for a capacity below one.
	ErrCapacity = errors.New("tach: capacity must be at least 1")

	// ErrWindow is returned by New for a window that is not positive.
	ErrWindow = errors.New("tach: window must be positive")
)

// Reading is a consistent view of the counter taken in one section.
type Reading struct {
	Live    uint32 // edges inside the window
	Total   uint64 // edges since the last reset
	Dropped uint64 // edges left out of the window because the ring was full
}

// Counter counts edges inside a trailing window.
//
// RecordEvent is the edge path: it must be called from a single goroutine and
// never blocks. Every other method may be called from any goroutine.
type Counter struct {
	window   time.Duration
	capacity int
	gate     *gate

	// Guarded by gate.
	ring    *expiryRing
	total   uint64
	dropped uint64
}

// EffectiveCapacity returns the ring size used for a requested capacity: the
// smallest power of two at or above it, or MaxCapacity for requests above
// MaxCapacity. The result can exceed MaxCapacity: EffectiveCapacity(65535)
// is 65536.
func EffectiveCapacity(requested int) int {
	if requested > MaxCapacity {
		return MaxCapacity
	}
	c := 1
	for c < requested {
		c <<= 1
	}
	return c
}

// New allocates a counter. Nothing is allocated if the arguments are invalid.
func New(capacity int, window time.Duration) (*Counter, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrWindow, window)
	}

	n := EffectiveCapacity(capacity)
	c := &Counter{
		window:   window,
		capacity: n,
		ring:     newExpiryRing(n),
	}
	c.gate = newGate(n, c)
	return c, nil
}

// RecordEvent records one edge observed at now.
// If the ring is full the edge still counts towards the total but is left out
// of the window.
func (c *Counter) RecordEvent(now time.Duration) {
	c.gate.fire(now)
}

// apply runs with the gate held.
func (c *Counter) apply(now time.Duration) {
	c.total++
	c.ring.evict(now)
	if !c.ring.push(now + c.window) {
		c.dropped++
	}
}

// lose runs with the gate held, for edges the latch could not hold.
func (c *Counter) lose(n uint64) {
	c.total += n
	c.dropped += n
}

// LiveCount returns the number of edges whose window has not elapsed at now.
func (c *Counter) LiveCount(now time.Duration) uint32 {
	var live uint32
	c.gate.do(func() {
		c.ring.evict(now)
		live = uint32(c.ring.len())
	})
	return live
}

// TotalCount returns the number of edges since the last reset.
func (c *Counter) TotalCount() uint64 {
	var total uint64
	c.gate.do(func() {
		total = c.total
	})
	return total
}

// ResetTotal zeroes the total. The window is not affected.
func (c *Counter) ResetTotal() {
	c.gate.do(func() {
		c.total = 0
	})
}

// Dropped returns the number of edges left out of the window since start.
func (c *Counter) Dropped() uint64 {
	var dropped uint64
	c.gate.do(func() {
		dropped = c.dropped
	})
	return dropped
}

// Snapshot evicts at now and returns live, total and dropped together.
func (c *Counter) Snapshot(now time.Duration) Reading {
	var r Reading
	c.gate.do(func() {
		c.ring.evict(now)
		r = Reading{
			Live:    uint32(c.ring.len()),
			Total:   c.total,
			Dropped: c.dropped,
		}
	})
	return r
}

// Capacity returns the effective ring size.
func (c *Counter) Capacity() int {
	return c.capacity
}

// Window returns the trailing window.
func (c *Counter) Window() time.Duration {
	return c.window
}

// Close releases the ring. After Close the live count stays at zero and new
// edges only reach the total.
func (c *Counter) Close() error {
	c.gate.do(func() {
		c.ring.release()
	})
	return nil
}
