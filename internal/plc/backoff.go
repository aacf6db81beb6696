// internal/plc/backoff.go
package plc

import "time"

const (
	// MaxBackoff caps the reconnection wait.
	MaxBackoff = 30 * time.Second

	// recreateAfter is the number of consecutive failures after which the
	// transport object is thrown away and rebuilt from the factory.
	recreateAfter = 10
)

// Backoff returns the wait applied after one reconnection-loop iteration.
//
//	wait = min(base * (1 + failures*0.2), MaxBackoff)
//
// Monotonically non-decreasing in failures.
func Backoff(base time.Duration, failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	wait := float64(base) * (1 + float64(failures)*0.2)
	if wait > float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(wait)
}
