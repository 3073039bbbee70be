package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestClaimer_ForgetsAfterTTL(t *testing.T) {
	c := memory.NewClaimer(10 * time.Millisecond)
	ctx := context.Background()

	ok, err := c.Claim(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Claim(ctx, "wamid.1")
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	ok, _ = c.Claim(ctx, "wamid.1")
	assert.True(t, ok)
}

func TestOrderStore_IdempotencyKey(t *testing.T) {
	s := memory.NewOrderStore()
	ctx := context.Background()
	order := &domain.Order{
		IdempotencyKey: "key-1",
		Phone:          "521",
		Items:          []domain.LineItem{{Slug: "agua", Quantity: 1, UnitPrice: domain.Pesos(30)}},
		Total:          domain.Pesos(30),
	}

	id1, err := s.InsertOrder(ctx, order)
	require.NoError(t, err)
	id2, err := s.InsertOrder(ctx, order)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, s.Orders(), 1)

	recent, err := s.RecentOrders(ctx, "521", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id1, recent[0].ID)
}

func TestOrderStore_RejectsEmptyOrders(t *testing.T) {
	s := memory.NewOrderStore()
	_, err := s.InsertOrder(context.Background(), &domain.Order{IdempotencyKey: "k"})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
}

const menu = `
categories:
  - id: pokes
    slug: pokes
    name: Pokes
  - id: bebidas
    slug: bebidas
    name: Bebidas
products:
  - id: 1
    slug: poke-grande
    name: Poke Grande
    base_price: 18900
    category_id: pokes
    available: true
    steps:
      - id: base
        name: Base
        min_selections: 1
        max_selections: 1
        included_selections: 1
        options:
          - id: arroz
            name: Arroz
  - id: 2
    slug: agua-jamaica
    name: Agua de Jamaica
    base_price: 3500
    category_id: bebidas
    available: true
  - id: 3
    slug: agua-horchata
    name: Agua de Horchata
    base_price: 3500
    category_id: bebidas
    available: false
`

func TestCatalog_ParseYAML(t *testing.T) {
	c, err := memory.ParseCatalog([]byte(menu))
	require.NoError(t, err)
	ctx := context.Background()

	p, err := c.GetProduct(ctx, "poke-grande")
	require.NoError(t, err)
	assert.Equal(t, domain.Pesos(189), p.BasePrice)
	assert.True(t, p.Customizable())
	assert.True(t, p.Steps[0].SingleSelect())

	_, err = c.GetProduct(ctx, "poke-fantasma")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = c.GetProduct(ctx, "agua-horchata")
	assert.ErrorIs(t, err, domain.ErrProductNotFound, "unavailable products cannot be fetched")

	drinks, err := c.GetProductsByCategory(ctx, "bebidas")
	require.NoError(t, err)
	require.Len(t, drinks, 1, "unavailable products are hidden")
	assert.Equal(t, "agua-jamaica", drinks[0].Slug)
}

func TestCatalog_RejectsDuplicateSlugs(t *testing.T) {
	_, err := memory.NewCatalog(nil, domain.Product{Slug: "a"}, domain.Product{Slug: "a"})
	assert.Error(t, err)
}
