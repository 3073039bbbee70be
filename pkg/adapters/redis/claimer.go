package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultClaimTTL is how long a processed message id is remembered.
const DefaultClaimTTL = 24 * time.Hour

// Claimer implements ports.Claimer with SET NX PX, so duplicate webhook
// deliveries are dropped across replicas.
type Claimer struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewClaimer creates a Claimer. A non-positive ttl uses DefaultClaimTTL.
func NewClaimer(client *backend.Client, prefix string, ttl time.Duration) *Claimer {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &Claimer{client: client, prefix: prefix, ttl: ttl}
}

// Claim records id and reports whether it was new.
func (c *Claimer) Claim(ctx context.Context, id string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+"msg:"+id, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim message id: %w", err)
	}
	return ok, nil
}
