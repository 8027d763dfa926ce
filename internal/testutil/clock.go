package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the start instant plus n*step, where n counts the
// previous calls. Reset rewinds to the start so the same test can run twice
// with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock whose first Now returns start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start.UTC(), step: step}
}

// Now returns the next instant and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Peek returns what the next Now would return, without advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.calls) * c.step)
}

// Reset rewinds the clock to its start instant.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
