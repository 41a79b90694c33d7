package gpio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPulserRun(t *testing.T) {
	out := NewFakeOutput()
	var slept []time.Duration
	p := &Pulser{Out: out, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	n, err := p.Run(context.Background(), 50, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 100 {
		t.Errorf("pulses: got %d, want 100", n)
	}
	if len(out.Values) != 200 {
		t.Fatalf("values: got %d, want 200", len(out.Values))
	}
	for i, v := range out.Values {
		if want := i % 2; v != want {
			t.Fatalf("value %d: got %d, want %d", i, v, want)
		}
	}
	if len(slept) != 200 || slept[0] != 10*time.Millisecond {
		t.Errorf("sleeps: got %d of %v, want 200 of 10ms", len(slept), slept[0])
	}
}

func TestPulserRisingEdges(t *testing.T) {
	out := NewFakeOutput()
	rising := 0
	last := 1
	out.OnSet = func(v int) {
		if last == 0 && v == 1 {
			rising++
		}
		last = v
	}
	p := &Pulser{Out: out, Sleep: func(time.Duration) {}}

	n, err := p.Run(context.Background(), 100, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rising != n {
		t.Errorf("rising edges: got %d, want %d", rising, n)
	}
}

func TestPulserRateOutOfRange(t *testing.T) {
	p := &Pulser{Out: NewFakeOutput(), Sleep: func(time.Duration) {}}
	for _, hz := range []int{0, -1, MaxPulseHz + 1} {
		if _, err := p.Run(context.Background(), hz, time.Second); err == nil {
			t.Errorf("%d Hz: expected error", hz)
		}
	}
}

func TestPulserCancelled(t *testing.T) {
	out := NewFakeOutput()
	ctx, cancel := context.WithCancel(context.Background())
	pulses := 0
	out.OnSet = func(v int) {
		if v == 1 {
			pulses++
			if pulses == 3 {
				cancel()
			}
		}
	}
	p := &Pulser{Out: out, Sleep: func(time.Duration) {}}

	n, err := p.Run(ctx, 10, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
	if n != 3 {
		t.Errorf("pulses before cancel: got %d, want 3", n)
	}
}

func TestPulserOutputError(t *testing.T) {
	out := NewFakeOutput()
	out.SetError = errors.New("line busy")
	p := &Pulser{Out: out, Sleep: func(time.Duration) {}}

	if _, err := p.Run(context.Background(), 10, time.Second); err == nil {
		t.Error("expected error")
	}
}
