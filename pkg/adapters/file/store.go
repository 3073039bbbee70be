// Package file stores sessions as one JSON file per customer, for the local
// chat simulator and single-node deployments.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/persistence"
)

const ext = ".json"

// ErrInvalidSessionID is returned for ids that cannot be used as file names.
var ErrInvalidSessionID = errors.New("invalid session id")

// Store implements ports.SessionStore using the local filesystem.
type Store struct {
	basePath string
	codec    persistence.Codec
}

// Option configures the Store.
type Option func(*Store)

// WithCodec replaces the indented JSON codec.
func WithCodec(codec persistence.Codec) Option {
	return func(s *Store) {
		s.codec = codec
	}
}

// New creates a Store rooted at basePath.
// If basePath is empty, it defaults to ".yokopoke/sessions".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".yokopoke", "sessions")
	}
	s := &Store{
		basePath: basePath,
		codec:    persistence.JSONCodec{Indent: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BasePath returns the directory holding the session files.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(s.basePath, sessionID+ext), nil
}

// Save writes the session atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	destPath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := s.codec.Encode(sess)
	if err != nil {
		return err
	}

	// Same directory, so the rename never crosses filesystems.
	tmpFile, err := os.CreateTemp(s.basePath, "tmp-"+sessionID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing session file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to session file: %w", err)
	}
	return nil
}

// Load reads and decodes the session file.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	filePath, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	sess, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	sess.ID = sessionID
	return sess, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	filePath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the stored session ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ext))
	}
	sort.Strings(sessions)
	return sessions, nil
}
