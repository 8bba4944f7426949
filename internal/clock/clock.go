// Package clock provides the logical clock and identifier generators
// used to order and name records.
package clock

import "sync/atomic"

// Clock is a monotonic logical clock. Every record insertion is stamped
// with a strictly increasing seq so that iteration order is insertion order
// without relying on wall-clock time.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// New creates a clock starting at 0.
func New() *Clock {
	return &Clock{}
}

// NewAt creates a clock starting at a specific sequence number.
// Used by persistent backends to resume after the highest stored seq.
func NewAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Observe advances the clock to at least seq.
func (c *Clock) Observe(seq int64) {
	for {
		cur := c.seq.Load()
		if seq <= cur || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
