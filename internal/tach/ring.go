package tach

import "time"

// expiryRing is a fixed-capacity FIFO of expiry timestamps.
// Entries are pushed in occurrence order, so they are also in expiry order and
// the oldest expiry is always at the tail.
// Not safe for concurrent use. The caller must hold the gate.
type expiryRing struct {
	slots []time.Duration
	head  int // next write position
	tail  int // oldest live entry
	count int
}

func newExpiryRing(capacity int) *expiryRing {
	return &expiryRing{slots: make([]time.Duration, capacity)}
}

// evict drops every entry whose expiry is at or before now.
func (r *expiryRing) evict(now time.Duration) {
	for r.count > 0 && r.slots[r.tail] <= now {
		r.tail = r.next(r.tail)
		r.count--
	}
}

// push appends expiry. It reports false, leaving the ring untouched, when the
// ring is full.
func (r *expiryRing) push(expiry time.Duration) bool {
	if r.count == len(r.slots) {
		return false
	}
	r.slots[r.head] = expiry
	r.head = r.next(r.head)
	r.count++
	return true
}

func (r *expiryRing) len() int {
	return r.count
}

func (r *expiryRing) capacity() int {
	return len(r.slots)
}

func (r *expiryRing) next(i int) int {
	i++
	if i == len(r.slots) {
		i = 0
	}
	return i
}

// release drops the slot storage. A released ring reports zero entries and
// rejects every push.
func (r *expiryRing) release() {
	r.slots = nil
	r.head, r.tail, r.count = 0, 0, 0
}
