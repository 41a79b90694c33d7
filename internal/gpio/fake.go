package gpio

import (
	"errors"
	"time"
)

// FakeSource is a test double that delivers scripted edges.
type FakeSource struct {
	handler EdgeHandler

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSource creates a FakeSource that feeds h.
func NewFakeSource(h EdgeHandler) *FakeSource {
	return &FakeSource{handler: h}
}

// Fire delivers one edge at ts. Edges after Close are ignored.
func (f *FakeSource) Fire(ts time.Duration) {
	if f.Closed {
		return
	}
	f.handler(ts)
}

// FireEvery delivers n edges starting at start, spaced by interval.
func (f *FakeSource) FireEvery(start, interval time.Duration, n int) {
	for i := 0; i < n; i++ {
		f.Fire(start + time.Duration(i)*interval)
	}
}

// Close stops edge delivery.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// FakeOutput records the values written to it.
type FakeOutput struct {
	// Values contains every value passed to SetValue, in order.
	Values []int

	// SetError, if set, will be returned by SetValue.
	SetError error

	// OnSet, if set, is called after each recorded value.
	OnSet func(v int)

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetValue records v.
func (f *FakeOutput) SetValue(v int) error {
	if f.SetError != nil {
		return f.SetError
	}
	if f.Closed {
		return errors.New("output closed")
	}
	f.Values = append(f.Values, v)
	if f.OnSet != nil {
		f.OnSet(v)
	}
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}
