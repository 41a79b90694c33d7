//go:build linux

package gpio

import (
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic returns the current CLOCK_MONOTONIC reading, the clock the GPIO
// character device stamps edge events with.
func Monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// CLOCK_MONOTONIC is always present on Linux.
		panic("gpio: clock_gettime: " + err.Error())
	}
	return time.Duration(ts.Nano())
}
