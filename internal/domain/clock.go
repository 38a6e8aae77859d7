package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var (
	clock = clockwork.NewRealClock()
	epoch = clock.Now()
)

// SetClock swaps the time source used to stamp reports. Pass nil to reset to
// real time. The uptime epoch restarts at the new clock's current time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
	epoch = clock.Now()
}

// uptime is the monotonic time elapsed since the clock epoch.
func uptime() time.Duration {
	return clock.Since(epoch)
}
