package session

import "time"

// Clock counts a session's remaining time down once per tick.
type Clock struct {
	budget    time.Duration
	remaining time.Duration
}

// NewClock returns a clock holding budget.
func NewClock(budget time.Duration) *Clock {
	return &Clock{budget: budget, remaining: budget}
}

// Reset restores the full budget.
func (c *Clock) Reset() {
	c.remaining = c.budget
}

// Advance subtracts dt. Remaining time never drops below zero and negative
// steps are ignored.
func (c *Clock) Advance(dt time.Duration) {
	c.remaining = max(c.remaining-max(dt, 0), 0)
}

// Remaining returns the time left.
func (c *Clock) Remaining() time.Duration {
	return c.remaining
}

// Expired reports whether no time is left.
func (c *Clock) Expired() bool {
	return c.remaining <= 0
}
