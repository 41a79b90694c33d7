package gpio

import (
	"context"
	"fmt"
	"time"
)

// MaxPulseHz is the fastest square wave the pulser will drive.
const MaxPulseHz = 500

// Pulser drives a square wave on an output, for loop-back testing of the
// tachometer input.
type Pulser struct {
	Out Output

	// Sleep waits between transitions. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// Run drives hz pulses per second for d and returns the number of pulses
// driven. Each pulse is a low half-period followed by a high half-period, so
// every pulse produces exactly one rising edge.
func (p *Pulser) Run(ctx context.Context, hz int, d time.Duration) (int, error) {
	if hz <= 0 || hz > MaxPulseHz {
		return 0, fmt.Errorf("pulse rate %d Hz out of range (1-%d)", hz, MaxPulseHz)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	pulses := int(int64(hz) * d.Milliseconds() / 1000)
	half := time.Second / time.Duration(2*hz)

	for i := 0; i < pulses; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := p.Out.SetValue(0); err != nil {
			return i, fmt.Errorf("pulse %d low: %w", i, err)
		}
		sleep(half)
		if err := p.Out.SetValue(1); err != nil {
			return i, fmt.Errorf("pulse %d high: %w", i, err)
		}
		sleep(half)
	}
	return pulses, nil
}
