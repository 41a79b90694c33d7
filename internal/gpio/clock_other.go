//go:build !linux

package gpio

import "time"

var epoch = time.Now()

// Monotonic returns the time since process start.
func Monotonic() time.Duration {
	return time.Since(epoch)
}
