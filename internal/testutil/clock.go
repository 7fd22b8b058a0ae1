// Package testutil provides deterministic stand-ins for the run's two
// nondeterministic inputs: the wall clock and the physical device.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock is a thread-safe manual clock for tests.
//
// It only moves when told to, so future-punch validation and last-seen
// stamps are reproducible across runs. Satisfies the engine's Clock
// interface.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock frozen at the given instant, normalized
// to UTC.
func NewFrozenClock(at time.Time) *FrozenClock {
	return &FrozenClock{now: at.UTC()}
}

// Now returns the frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to an absolute instant.
func (c *FrozenClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at.UTC()
}
