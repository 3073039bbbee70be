package persistence_test

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleSession() *domain.Session {
	at := time.Date(2026, 6, 5, 18, 0, 0, 0, time.UTC)
	s := domain.NewSession("5215512345678", at)
	s.LastInteraction = at
	s.Profile = domain.CustomerProfile{Name: "Ana López", Address: "Av. Reforma 222, Juárez"}
	s.Mode = domain.CheckoutMode{State: domain.CheckoutState{
		Step:         domain.StepCollectDelivery,
		CustomerName: "Ana López",
		OrderKey:     "order-key-1",
	}}
	return s
}

func TestEncryptedCodec_Roundtrip(t *testing.T) {
	codec, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	data, err := codec.Encode(sampleSession())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("Reforma")), "address must not be stored in clear text")
	assert.True(t, bytes.Contains(data, []byte("__encrypted__")))

	loaded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Av. Reforma 222, Juárez", loaded.Profile.Address)
	assert.Equal(t, domain.ModeCheckout, loaded.Mode.Name())
}

func TestEncryptedCodec_KeyRotation(t *testing.T) {
	oldKey, newKey := generateKey(t), generateKey(t)

	oldCodec, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	data, err := oldCodec.Encode(sampleSession())
	require.NoError(t, err)

	rotated, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)

	loaded, err := rotated.Decode(data)
	require.NoError(t, err, "fallback key opens records written before the rotation")

	rewritten, err := rotated.Encode(loaded)
	require.NoError(t, err)
	_, err = oldCodec.Decode(rewritten)
	assert.ErrorIs(t, err, domain.ErrCorruptSession, "old key alone cannot read rewritten records")
}

func TestEncryptedCodec_RejectsPlainRecords(t *testing.T) {
	codec, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	plain, err := persistence.JSONCodec{}.Encode(sampleSession())
	require.NoError(t, err)

	_, err = codec.Decode(plain)
	assert.ErrorIs(t, err, domain.ErrCorruptSession)
}

func TestEncryptedCodec_InvalidKey(t *testing.T) {
	_, err := persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)

	_, err = persistence.NewEncryptedCodec(persistence.JSONCodec{}, persistence.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	fromHex, err := persistence.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, fromHex)

	fromBase64, err := persistence.ParseKey(" " + base64.StdEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, fromBase64)

	_, err = persistence.ParseKey("not-a-key")
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)
}

func TestJSONCodec_CorruptRecord(t *testing.T) {
	_, err := persistence.JSONCodec{}.Decode([]byte(`{"mode": 42`))
	assert.ErrorIs(t, err, domain.ErrCorruptSession)
}

func TestJSONCodec_UnknownModeIsRepaired(t *testing.T) {
	sess, err := persistence.JSONCodec{}.Decode([]byte(`{"id":"x","mode":"DANCING","lock":{},"bucket":{},"profile":{}}`))
	require.NoError(t, err)

	fixes := sess.Repair(20)
	assert.Equal(t, domain.ModeNormal, sess.Mode.Name())
	assert.NotEmpty(t, fixes)
}
