package testutils

import (
	"context"
	"sync"
	"time"
)

// Clock is a controllable ports.Clock. Sleep advances the fake time instantly
// and then runs OnSleep, which tests use to inject messages that "arrive"
// during a debounce window.
type Clock struct {
	mu  sync.Mutex
	now time.Time

	// OnSleep runs after the clock was advanced by a Sleep call.
	OnSleep func(d time.Duration)
	// Delay is real time spent inside Sleep, letting concurrent goroutines pile up.
	Delay time.Duration
}

// NewClock creates a Clock set to now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the fake time to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Sleep advances the fake time by d without waiting for it.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Delay):
		}
	}
	c.Advance(d)
	c.mu.Lock()
	hook := c.OnSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}
