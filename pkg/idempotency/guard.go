// Package idempotency drops inbound messages that were already processed.
package idempotency

import (
	"context"
	"log/slog"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
)

// Guard wraps a Claimer with the fail-open policy: if the claim store is
// unavailable the message is processed rather than lost.
type Guard struct {
	claimer ports.Claimer
	logger  *slog.Logger
}

// Option configures the Guard.
type Option func(*Guard)

// WithLogger configures a logger for the Guard.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// New creates a Guard backed by claimer.
func New(claimer ports.Claimer, opts ...Option) *Guard {
	g := &Guard{
		claimer: claimer,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Claim returns true if the message id has not been seen before.
// Messages without an id cannot be deduplicated and are always processed.
func (g *Guard) Claim(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return true
	}
	ok, err := g.claimer.Claim(ctx, messageID)
	if err != nil {
		g.logger.Warn("Idempotency store unavailable, processing message anyway",
			"message_id", messageID,
			"err", err,
		)
		return true
	}
	return ok
}
