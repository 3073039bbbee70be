// Package ratelimit implements the per-session token bucket applied to inbound messages.
package ratelimit

import (
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

const (
	// DefaultCapacity is the number of messages accepted per window.
	DefaultCapacity = 20
	// DefaultWindow is the time after which the bucket is refilled to capacity.
	DefaultWindow = 60 * time.Second
)

// Limiter decides whether a session may send another message.
// The bucket itself lives in the session record so it survives restarts and
// is updated atomically with the rest of the session.
type Limiter struct {
	capacity int
	window   time.Duration
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithCapacity overrides the bucket capacity.
func WithCapacity(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithWindow overrides the refill window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// New creates a Limiter with the default 20 messages per 60s.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		capacity: DefaultCapacity,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Capacity returns the configured bucket size.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Allow consumes one token from the bucket. A bucket that was never used, or
// whose last reset is at least one window old, is refilled to full first.
// It returns false, leaving the bucket empty, when no token is left.
func (l *Limiter) Allow(b *domain.RateBucket, now time.Time) bool {
	if b.LastRefill.IsZero() || now.Sub(b.LastRefill) >= l.window {
		b.Tokens = l.capacity
		b.LastRefill = now
	}
	if b.Tokens <= 0 {
		b.Tokens = 0
		return false
	}
	b.Tokens--
	return true
}
