// Package device exposes the tachometer as a byte stream.
//
// A read returns the live count as a fixed-width, native byte order unsigned
// integer. A non-empty write resets the total; its content is ignored.
package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Width is the size in bytes of an encoded count.
const Width = 4

var (
	// ErrBusy is returned by Open when the face is exclusive and already open.
	ErrBusy = errors.New("device: already open")

	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("device: handle closed")
)

// Counter is the part of the tachometer the face reads and resets.
type Counter interface {
	LiveCount(now time.Duration) uint32
	ResetTotal()
}

// Face adapts a Counter to Read and Write.
type Face struct {
	counter Counter
	now     func() time.Duration
	permit  *semaphore.Weighted // nil unless exclusive
}

// New creates a Face reading counter at the times returned by now.
// If exclusive is set, at most one Handle may be open at a time.
func New(counter Counter, now func() time.Duration, exclusive bool) *Face {
	f := &Face{counter: counter, now: now}
	if exclusive {
		f.permit = semaphore.NewWeighted(1)
	}
	return f
}

// Read samples the live count and copies up to Width bytes of its encoding
// into p. It never returns io.EOF; every call takes a fresh sample.
func (f *Face) Read(p []byte) (int, error) {
	// The sample is always taken so idle entries expire even on empty reads.
	live := f.counter.LiveCount(f.now())
	if len(p) == 0 {
		return 0, nil
	}
	var buf [Width]byte
	binary.NativeEndian.PutUint32(buf[:], live)
	return copy(p, buf[:]), nil
}

// Write resets the total if p is non-empty and reports all of p as written.
func (f *Face) Write(p []byte) (int, error) {
	if len(p) > 0 {
		f.counter.ResetTotal()
	}
	return len(p), nil
}

// Open returns a handle, or ErrBusy if the face is exclusive and held.
func (f *Face) Open() (*Handle, error) {
	if f.permit != nil && !f.permit.TryAcquire(1) {
		return nil, ErrBusy
	}
	return &Handle{face: f}, nil
}

// OpenWait is like Open but waits for an exclusive face to be released.
func (f *Face) OpenWait(ctx context.Context) (*Handle, error) {
	if f.permit != nil {
		if err := f.permit.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("wait for device: %w", err)
		}
	}
	return &Handle{face: f}, nil
}

// Handle is one opener of a Face.
type Handle struct {
	face   *Face
	closed atomic.Bool
}

// Read reads from the face.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.face.Read(p)
}

// Write writes to the face.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	return h.face.Write(p)
}

// Close releases the handle. Closing twice returns ErrClosed.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if h.face.permit != nil {
		h.face.permit.Release(1)
	}
	return nil
}

// Decode returns the count encoded by Read.
func Decode(b []byte) (uint32, error) {
	if len(b) < Width {
		return 0, fmt.Errorf("device: short count: %d of %d bytes", len(b), Width)
	}
	return binary.NativeEndian.Uint32(b), nil
}
