package logstore

import "time"

// Clock supplies record timestamps in milliseconds.
// Values are only meaningful relative to each other within one process.
type Clock interface {
	Now() float64
}

// MonotonicClock measures milliseconds elapsed since it was created using
// the runtime's monotonic clock reading.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns fractional milliseconds since the clock started.
func (c *MonotonicClock) Now() float64 {
	return float64(time.Since(c.start).Nanoseconds()) / 1e6
}
