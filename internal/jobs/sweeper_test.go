package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/jobs"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/testutils"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 6, 5, 20, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	manager := session.NewManager(store, session.WithClock(testutils.NewClock(now)))
	ctx := context.Background()

	for i, idle := range []time.Duration{3 * time.Hour, 5 * time.Hour, 10 * time.Minute} {
		id := string(rune('a' + i))
		s := domain.NewSession(id, now.Add(-6*time.Hour))
		s.Cart = []domain.LineItem{{Slug: "agua-jamaica", Quantity: 1}}
		s.LastInteraction = now.Add(-idle)
		require.NoError(t, store.Save(ctx, id, s))
	}

	sweeper := jobs.NewSweeper(manager, "", logging.NewNop())
	n, err := sweeper.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	active, err := store.Load(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, active.Cart, 1)
	swept, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, swept.Cart)

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := jobs.NewSweeper(session.NewManager(memory.NewStore()), "every now and then", logging.NewNop())

	assert.Error(t, sweeper.Start())
}

func TestSweeper_StartStop(t *testing.T) {
	sweeper := jobs.NewSweeper(session.NewManager(memory.NewStore()), "@every 1h", logging.NewNop())

	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
