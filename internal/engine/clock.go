package engine

import "sync/atomic"

// Clock is a monotonic logical counter.
//
// Command ids, journal sequence numbers and device timestamps are all drawn
// from a Clock, never from wall time, so that a replayed scenario produces
// the same ids and the same trace.
//
// Clock is safe for concurrent use, although a Buffer has a single writer.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific value.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
