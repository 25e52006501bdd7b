package dispatch

import "sync/atomic"

// Clock stamps dispatched events with a strictly increasing sequence
// number, giving traces a deterministic total order with no wall-clock
// dependence.
//
// Safe for concurrent use via atomics, though the emitter's
// single-dispatcher design means one goroutine typically calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock. Each
// call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
