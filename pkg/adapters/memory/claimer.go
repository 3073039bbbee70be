package memory

import (
	"context"
	"sync"
	"time"
)

// Claimer implements ports.Claimer with an expiring in-memory set.
type Claimer struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewClaimer creates a Claimer that forgets ids after ttl.
func NewClaimer(ttl time.Duration) *Claimer {
	return &Claimer{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Claim records id and reports whether it was new.
func (c *Claimer) Claim(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.seen[id]; ok && now.Before(exp) {
		return false, nil
	}
	c.seen[id] = now.Add(c.ttl)

	// Lazy cleanup keeps the set bounded by the traffic of one TTL window.
	if len(c.seen)%256 == 0 {
		for k, exp := range c.seen {
			if !now.Before(exp) {
				delete(c.seen, k)
			}
		}
	}
	return true, nil
}
