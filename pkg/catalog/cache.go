// Package catalog provides a read-through, time-bounded cache in front of a
// ports.Catalog. Concurrent misses for the same key share one backend call.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds how stale a cached menu can be.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value   any
	expires time.Time
}

// Cache implements ports.Catalog.
type Cache struct {
	backend ports.Catalog
	ttl     time.Duration
	clock   ports.Clock
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// Option configures the Cache.
type Option func(*Cache)

// WithTTL sets the entry lifetime. Non-positive values disable caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock replaces the wall clock.
func WithClock(clock ports.Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache wraps backend.
func NewCache(backend ports.Catalog, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		ttl:     DefaultTTL,
		clock:   ports.SystemClock{},
		logger:  logging.NewNop(),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProduct returns a cached product. Misses are not cached so a product
// added to the menu shows up immediately.
func (c *Cache) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	v, err := c.get(ctx, "product:"+slug, func(ctx context.Context) (any, error) {
		return c.backend.GetProduct(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

// GetCategories returns the cached categories.
func (c *Cache) GetCategories(ctx context.Context) ([]domain.Category, error) {
	v, err := c.get(ctx, "categories", func(ctx context.Context) (any, error) {
		return c.backend.GetCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Category(nil), v.([]domain.Category)...), nil
}

// GetProductsByCategory returns the cached products of a category.
func (c *Cache) GetProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	v, err := c.get(ctx, "category:"+categoryID, func(ctx context.Context) (any, error) {
		return c.backend.GetProductsByCategory(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), v.([]domain.Product)...), nil
}

// ListProducts returns every cached product.
func (c *Cache) ListProducts(ctx context.Context) ([]domain.Product, error) {
	v, err := c.get(ctx, "products", func(ctx context.Context) (any, error) {
		return c.backend.ListProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), v.([]domain.Product)...), nil
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *Cache) get(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	now := c.clock.Now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		return e.value, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[key] = entry{value: v, expires: c.clock.Now().Add(c.ttl)}
			c.mu.Unlock()
		}
		return v, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			c.logger.Warn("Catalog lookup failed", "key", key, "err", err)
		}
		return nil, fmt.Errorf("catalog %s: %w", key, err)
	}
	if shared {
		c.logger.Debug("Catalog lookup shared", "key", key)
	}
	return v, nil
}
