package persistence

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// ErrInvalidKey is returned for keys that are not 32 bytes long.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a record.
	// Keep retired keys here until every record was rewritten.
	FallbackKeys [][]byte
}

// envelope is the at-rest shape of an encrypted record.
type envelope struct {
	Encrypted string `json:"__encrypted__"`
}

type encryptedCodec struct {
	next   Codec
	config EncryptionConfig
}

// NewEncryptedCodec wraps next with AES-GCM encryption. The customer's name,
// address and conversation never reach the store in clear text.
func NewEncryptedCodec(next Codec, config EncryptionConfig) (Codec, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d: %w", i, ErrInvalidKey)
		}
	}
	return &encryptedCodec{next: next, config: config}, nil
}

func (c *encryptedCodec) Encode(sess *domain.Session) ([]byte, error) {
	plainText, err := c.next.Encode(sess)
	if err != nil {
		return nil, err
	}

	ciphertext, err := encrypt(plainText, c.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt session: %w", err)
	}

	return json.Marshal(envelope{Encrypted: base64.StdEncoding.EncodeToString(ciphertext)})
}

func (c *encryptedCodec) Decode(data []byte) (*domain.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSession, err)
	}
	// Plain records are rejected rather than trusted.
	if env.Encrypted == "" {
		return nil, fmt.Errorf("%w: record is missing encrypted data envelope", domain.ErrCorruptSession)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext base64: %v", domain.ErrCorruptSession, err)
	}

	plainText, err := decryptWithRotation(ciphertext, c.config.ActiveKey, c.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSession, err)
	}
	return c.next.Decode(plainText)
}

// ParseKey reads a 32 byte key written as 64 hex characters or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) == 64 {
		if k, err := hex.DecodeString(s); err == nil {
			return k, nil
		}
	}
	k, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(k) != 32 {
		return nil, ErrInvalidKey
	}
	return k, nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
