package tach

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	stateBusy   uint32 = 1 << 0 // the edge path is applying edges
	stateMasked uint32 = 1 << 1 // a reader holds its section
)

// flags is the gate state saved by save and handed back to restore.
type flags uint32

// edgeSink receives edges once the gate is held.
type edgeSink interface {
	apply(ts time.Duration)
	lose(n uint64)
}

// gate excludes the edge path from reader sections without ever making the
// edge path wait.
//
// Readers take the gate by masking it. An edge that fires while the gate is
// masked, or while another edge is being applied, is parked in the latch and
// the gate state is left untouched; whoever holds the gate applies the latch
// before letting go. This mirrors an interrupt that is held pending while
// interrupts are disabled and delivered when they are restored.
type gate struct {
	readers sync.Mutex
	state   atomic.Uint32
	pending *latch
	lost    atomic.Uint64 // edges that did not fit in the latch
	sink    edgeSink
}

func newGate(latchSize int, sink edgeSink) *gate {
	return &gate{
		pending: newLatch(latchSize),
		sink:    sink,
	}
}

// fire delivers an edge. Must only be called from one goroutine at a time.
// It never blocks.
func (g *gate) fire(ts time.Duration) {
	if !g.pending.push(ts) {
		g.lost.Add(1)
	}
	g.kick()
}

// save masks the gate for a reader section and returns the prior state.
// Readers wait for each other; while waiting for an in-flight edge to finish
// they spin, since the edge path never holds the gate for long.
func (g *gate) save() flags {
	g.readers.Lock()
	for {
		prev := g.state.Load()
		if prev&stateBusy == 0 && g.state.CompareAndSwap(prev, prev|stateMasked) {
			return flags(prev)
		}
		runtime.Gosched()
	}
}

// restore applies edges latched during the section, puts the saved state
// back and ends the section.
func (g *gate) restore(f flags) {
	g.drain()
	g.state.Store(uint32(f))
	g.readers.Unlock()
	// An edge may have been latched after the drain above.
	g.kick()
}

// kick applies latched edges if nobody holds the gate. If the gate is held,
// the holder sees the latch on its way out.
func (g *gate) kick() {
	for g.pending.len() > 0 || g.lost.Load() > 0 {
		if !g.state.CompareAndSwap(0, stateBusy) {
			return
		}
		g.drain()
		g.state.Store(0)
	}
}

// drain must be called with the gate held.
func (g *gate) drain() {
	if n := g.lost.Swap(0); n > 0 {
		g.sink.lose(n)
	}
	for {
		ts, ok := g.pending.pop()
		if !ok {
			return
		}
		g.sink.apply(ts)
	}
}

// do runs fn inside a reader section. The section is released on every exit
// path, including a panic in fn.
func (g *gate) do(fn func()) {
	f := g.save()
	defer g.restore(f)
	fn()
}
