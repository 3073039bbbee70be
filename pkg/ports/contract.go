package ports

import (
	"context"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	now := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(sessionID, now)
		sess.Mode = domain.BuilderMode{State: domain.BuilderState{
			ProductSlug: "poke-grande",
			StepIndex:   2,
			Selections: map[domain.StepID][]domain.OptionID{
				"proteina": {"atun", "salmon"},
			},
		}}
		sess.Pending = []domain.PendingMessage{{ID: "wamid.1", Text: "hola", ReceivedAt: now}}
		sess.Lock = domain.Lock{Holder: "holder-1", AcquiredAt: now}
		sess.Bucket = domain.RateBucket{Tokens: 12, LastRefill: now}
		sess.Cart = []domain.LineItem{{Slug: "agua", Name: "Agua", UnitPrice: domain.Pesos(30), Quantity: 2}}

		err := store.Save(ctx, sessionID, sess)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, sess.Mode, loaded.Mode)
		assert.Equal(t, "hola", loaded.Pending[0].Text)
		assert.Equal(t, "holder-1", loaded.Lock.Holder)
		assert.True(t, now.Equal(loaded.Lock.AcquiredAt))
		assert.Equal(t, 12, loaded.Bucket.Tokens)
		assert.Equal(t, domain.Pesos(60), domain.CartTotal(loaded.Cart))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Cart = nil
		loaded.Mode = domain.NormalMode{}

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.Cart, 1)
		assert.Equal(t, domain.ModeBuilder, again.Mode.Name())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID, now))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, now))
		_ = store.Save(ctx, id2, domain.NewSession(id2, now))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
