package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/redis"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClaimer(t *testing.T) {
	mr, client := newClient(t)
	claimer := redis.NewClaimer(client, "yokopoke:", time.Hour)
	ctx := context.Background()

	first, err := claimer.Claim(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := claimer.Claim(ctx, "wamid.1")
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(2 * time.Hour)
	afterTTL, err := claimer.Claim(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, afterTTL)
}

func TestRedisClaimer_GuardFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, client := newClient(t)
	guard := idempotency.New(redis.NewClaimer(client, "yokopoke:", 0))
	ctx := context.Background()

	assert.True(t, guard.Claim(ctx, "wamid.1"))
	assert.False(t, guard.Claim(ctx, "wamid.1"))

	mr.Close()
	assert.True(t, guard.Claim(ctx, "wamid.2"), "storage failure must not drop messages")
}
