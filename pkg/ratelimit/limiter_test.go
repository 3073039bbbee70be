package ratelimit_test

import (
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestLimiter_TwentyFirstMessageDropped(t *testing.T) {
	l := ratelimit.New()
	var bucket domain.RateBucket
	start := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		assert.True(t, l.Allow(&bucket, start.Add(time.Duration(i)*time.Second)), "message %d", i+1)
	}
	assert.False(t, l.Allow(&bucket, start.Add(25*time.Second)))
	assert.Equal(t, 0, bucket.Tokens)
}

func TestLimiter_HardResetAfterWindow(t *testing.T) {
	l := ratelimit.New(ratelimit.WithCapacity(2), ratelimit.WithWindow(time.Minute))
	var bucket domain.RateBucket
	start := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)

	assert.True(t, l.Allow(&bucket, start))
	assert.True(t, l.Allow(&bucket, start.Add(10*time.Second)))
	assert.False(t, l.Allow(&bucket, start.Add(59*time.Second)))

	// The window is measured from the last reset, not from the last message.
	assert.True(t, l.Allow(&bucket, start.Add(60*time.Second)))
	assert.Equal(t, 1, bucket.Tokens)
	assert.Equal(t, start.Add(60*time.Second), bucket.LastRefill)
}

func TestLimiter_IgnoresInvalidOptions(t *testing.T) {
	l := ratelimit.New(ratelimit.WithCapacity(0), ratelimit.WithWindow(-time.Second))
	assert.Equal(t, ratelimit.DefaultCapacity, l.Capacity())
}
