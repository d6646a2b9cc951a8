// Package clock provides an abstraction for time operations to improve testability.
// Benchmark records carry a wall-clock timestamp and variant durations feed
// the metrics recorder, so both go through a Clock that tests can pin.
package clock

import "time"

// Clock is an interface for time operations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock that always returns the same instant.
type Fixed struct {
	T time.Time
}

// Now returns the fixed instant.
func (f Fixed) Now() time.Time {
	return f.T
}

// Ensure both clocks implement Clock.
var (
	_ Clock = RealClock{}
	_ Clock = Fixed{}
)

// Since returns the time elapsed on c since start.
func Since(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}

// UnixSeconds returns t as fractional seconds since the Unix epoch, the
// timestamp format of results records.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
