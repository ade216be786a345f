package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a record timestamp clock for tests.
//
// Every call to Now advances the clock by a fixed step, so the same sequence
// of inserts always produces the same timestamps. Satisfies logstore.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	step float64
	now  float64
}

// NewDeterministicClock creates a clock at 0 that advances 1ms per reading.
//
// The first call to Now() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return NewSteppedClock(1)
}

// NewSteppedClock creates a clock at 0 that advances step ms per reading.
func NewSteppedClock(step float64) *DeterministicClock {
	return &DeterministicClock{step: step}
}

// Now advances the clock and returns the new reading.
func (c *DeterministicClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the last reading without advancing.
func (c *DeterministicClock) Current() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset moves the clock back to 0.
//
// Used for test reuse. After Reset(), the next call to Now() returns step.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}

// FixedWall returns a wall clock frozen at the given unix millisecond, for
// record.NewIDGenerator. Ids minted with it differ only in their counter.
func FixedWall(unixMilli int64) func() time.Time {
	t := time.UnixMilli(unixMilli)
	return func() time.Time { return t }
}
