package redis_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/redis"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/persistence"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_EncryptedContract(t *testing.T) {
	mr, client := newClient(t)
	key := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	codec, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	store := redis.NewFromClient(client, redis.WithCodec(codec))
	ports.RunSessionStoreContract(t, store)

	sess := domain.NewSession("5215500000000", time.Now())
	sess.Profile.Address = "Calle Durango 10, Roma Norte"
	require.NoError(t, store.Save(context.Background(), sess.ID, sess))

	raw, err := mr.Get(redis.DefaultPrefix + sess.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw, "Durango")
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID, time.Now()))
	require.NoError(t, err)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against the wall clock, so wait past the score.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID, time.Now()))
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"broken", "{not json"))

	_, err := store.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrCorruptSession)
}
