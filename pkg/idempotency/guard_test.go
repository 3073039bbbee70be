package idempotency_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/idempotency"
	"github.com/stretchr/testify/assert"
)

type brokenClaimer struct{}

func (brokenClaimer) Claim(ctx context.Context, id string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestGuard_DropsRepeats(t *testing.T) {
	g := idempotency.New(memory.NewClaimer(time.Hour))
	ctx := context.Background()

	assert.True(t, g.Claim(ctx, "wamid.1"))
	assert.False(t, g.Claim(ctx, "wamid.1"))
	assert.True(t, g.Claim(ctx, "wamid.2"))
}

func TestGuard_FailsOpen(t *testing.T) {
	g := idempotency.New(brokenClaimer{})
	assert.True(t, g.Claim(context.Background(), "wamid.1"))
	assert.True(t, g.Claim(context.Background(), "wamid.1"))
}

func TestGuard_EmptyIDAlwaysProcessed(t *testing.T) {
	g := idempotency.New(memory.NewClaimer(time.Hour))
	assert.True(t, g.Claim(context.Background(), ""))
	assert.True(t, g.Claim(context.Background(), ""))
}
