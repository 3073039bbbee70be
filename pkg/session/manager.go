package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ratelimit"
)

// DefaultIdleTimeout is the inactivity window after which a conversation starts over.
const DefaultIdleTimeout = 2 * time.Hour

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	clock   ports.Clock

	idleTimeout    time.Duration
	bucketCapacity int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks held by WithLock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces the wall clock.
func WithClock(clock ports.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithIdleTimeout sets the inactivity window after which sessions are replaced by fresh ones.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithBucketCapacity sets the rate bucket capacity used to validate stored records.
func WithBucketCapacity(n int) Option {
	return func(m *Manager) {
		m.bucketCapacity = n
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		locks:          make(map[string]*lockEntry),
		lockTTL:        30 * time.Second,
		logger:         logging.NewNop(), // Default to no-op
		clock:          ports.SystemClock{},
		idleTimeout:    DefaultIdleTimeout,
		bucketCapacity: ratelimit.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// load reads a session and applies record validation and the inactivity reset.
// It never returns domain.ErrSessionNotFound: unknown ids get a fresh NORMAL session.
// The caller must hold the session lock.
func (m *Manager) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	now := m.clock.Now()

	sess, err := m.store.Load(ctx, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.NewSession(sessionID, now), nil
	case errors.Is(err, domain.ErrCorruptSession):
		m.logger.Warn("Discarding undecodable session record", "session_id", sessionID, "err", err)
		return domain.NewSession(sessionID, now), nil
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if fixes := sess.Repair(m.bucketCapacity); len(fixes) > 0 {
		m.logger.Warn("Repaired malformed session record", "session_id", sessionID, "fixes", fixes)
	}
	sess.ID = sessionID

	if !sess.LastInteraction.IsZero() && now.Sub(sess.LastInteraction) > m.idleTimeout {
		m.logger.Info("Session expired after inactivity, starting over",
			"session_id", sessionID,
			"idle", now.Sub(sess.LastInteraction).Round(time.Minute),
		)
		fresh := domain.NewSession(sessionID, now)
		fresh.Profile = sess.Profile
		return fresh, nil
	}
	return sess, nil
}

// Load returns the current session, or a fresh NORMAL session if none exists.
// Nothing is persisted.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		sess, err = m.load(ctx, sessionID)
		return err
	})
	return sess, err
}

// Update loads (or initializes) the session, applies fn and saves the result,
// all while holding the session lock. If fn returns an error nothing is saved.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		loaded, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(loaded); err != nil {
			return err
		}
		if err := m.store.Save(ctx, sessionID, loaded); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		sess = loaded
		return nil
	})
	return sess, err
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, sess)
	})
}

// Reset soft-resets a session: back to NORMAL with an empty cart, queue and lock.
// The customer profile is kept.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	_, err := m.Update(ctx, sessionID, func(s *domain.Session) error {
		s.Reset()
		s.Pending = nil
		s.Lock = domain.Lock{}
		return nil
	})
	return err
}

// Expire replaces a session idle for longer than the idle timeout by the fresh
// session its next message would get anyway, keeping the profile. It reports
// whether anything was rewritten.
func (m *Manager) Expire(ctx context.Context, sessionID string) (bool, error) {
	var expired bool
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := m.store.Load(ctx, sessionID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return nil
		case errors.Is(err, domain.ErrCorruptSession):
			m.logger.Warn("Deleting undecodable session record", "session_id", sessionID, "err", err)
			expired = true
			return m.store.Delete(ctx, sessionID)
		case err != nil:
			return fmt.Errorf("failed to load session: %w", err)
		}

		now := m.clock.Now()
		if sess.Fresh() || now.Sub(sess.LastInteraction) <= m.idleTimeout {
			return nil
		}
		fresh := domain.NewSession(sessionID, sess.CreatedAt)
		fresh.Profile = sess.Profile
		fresh.Bucket = sess.Bucket
		if err := m.store.Save(ctx, sessionID, fresh); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		expired = true
		return nil
	})
	return expired, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Clock returns the time source shared with the coordinator.
func (m *Manager) Clock() ports.Clock {
	return m.clock
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
