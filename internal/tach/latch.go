package tach

import (
	"sync/atomic"
	"time"
)

// latch holds edges that arrived while the gate was held, in arrival order.
// It is a lock-free single-producer single-consumer ring: push is called only
// from the edge path, pop only by whoever holds the gate.
type latch struct {
	buf  []time.Duration
	head atomic.Uint64 // written by push
	tail atomic.Uint64 // written by pop
}

func newLatch(capacity int) *latch {
	return &latch{buf: make([]time.Duration, capacity)}
}

// push stores ts. It reports false if the latch is full; ts is not stored.
func (l *latch) push(ts time.Duration) bool {
	head := l.head.Load()
	tail := l.tail.Load()
	n := uint64(len(l.buf))
	if head-tail >= n {
		return false
	}
	l.buf[head%n] = ts
	l.head.Store(head + 1)
	return true
}

// pop removes the oldest latched edge.
func (l *latch) pop() (time.Duration, bool) {
	tail := l.tail.Load()
	head := l.head.Load()
	if tail >= head {
		return 0, false
	}
	ts := l.buf[tail%uint64(len(l.buf))]
	l.tail.Store(tail + 1)
	return ts, true
}

func (l *latch) len() int {
	return int(l.head.Load() - l.tail.Load())
}
