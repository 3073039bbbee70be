package catalog_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/testutils"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/catalog"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCatalog counts backend calls and can block them until released.
type countingCatalog struct {
	ports.Catalog
	calls atomic.Int32
	gate  chan struct{}
}

func (c *countingCatalog) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.Catalog.GetProduct(ctx, slug)
}

func (c *countingCatalog) GetCategories(ctx context.Context) ([]domain.Category, error) {
	c.calls.Add(1)
	return c.Catalog.GetCategories(ctx)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := testutils.NewClock(time.Date(2026, 6, 5, 18, 0, 0, 0, time.UTC))
	backend := &countingCatalog{Catalog: testutils.Catalog(t)}
	c := catalog.NewCache(backend, catalog.WithTTL(time.Minute), catalog.WithClock(clock))

	for i := 0; i < 3; i++ {
		cats, err := c.GetCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 2)
	}
	assert.Equal(t, int32(1), backend.calls.Load())

	clock.Advance(61 * time.Second)
	_, err := c.GetCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := catalog.NewCache(testutils.Catalog(t))

	p, err := c.GetProduct(ctx, "poke-grande")
	require.NoError(t, err)
	p.Name = "mutated"

	again, err := c.GetProduct(ctx, "poke-grande")
	require.NoError(t, err)
	assert.Equal(t, "Poke Grande", again.Name)
}

func TestCache_MissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &countingCatalog{Catalog: testutils.Catalog(t)}
	c := catalog.NewCache(backend)

	_, err := c.GetProduct(ctx, "pizza")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = c.GetProduct(ctx, "pizza")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, int32(2), backend.calls.Load())
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	backend := &countingCatalog{Catalog: testutils.Catalog(t), gate: make(chan struct{})}
	c := catalog.NewCache(backend)

	const readers = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			p, err := c.GetProduct(context.Background(), "limonada")
			assert.NoError(t, err)
			assert.Equal(t, "Limonada Mineral", p.Name)
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	assert.LessOrEqual(t, backend.calls.Load(), int32(2))
}
