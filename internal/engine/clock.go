package engine

import "sync/atomic"

// Clock is the explicit simulation clock passed into Update by the host.
//
// Ticks are strictly increasing. The clock replaces any process-wide time
// counter: every Update call receives the tick it runs at.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the host's single-writer loop means only one goroutine
// typically calls Advance().
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0. The first Advance returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Advance moves the clock forward one tick and returns the new tick.
func (c *Clock) Advance() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
