// Package testutil holds deterministic helpers shared by package tests
// and the scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// DeterministicClock is a resettable monotonic counter.
//
// Thread-safety: All methods are safe for concurrent use.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the next call to Next returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// SequentialIDs generates "<prefix>-1", "<prefix>-2", ... so that
// server-assigned identifiers are stable across runs and golden files.
type SequentialIDs struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequentialIDs creates a generator. An empty prefix becomes "rec".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "rec"
	}
	return &SequentialIDs{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next identifier.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.clock.Next())
}

// Reset restarts the sequence.
func (g *SequentialIDs) Reset() {
	g.clock.Reset()
}
