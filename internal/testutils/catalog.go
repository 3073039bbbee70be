package testutils

import (
	"testing"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/memory"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Menu returns the fixture categories and products used across tests.
//
// Poke Grande ($189) has three steps:
//   - base: single select, one included
//   - proteina: up to 3, one included, $25 per extra (+$15 premium for salmon)
//   - toppings: unlimited, three included, $10 per extra
//
// Agua de Horchata is off the menu.
func Menu() ([]domain.Category, []domain.Product) {
	categories := []domain.Category{
		{ID: "pokes", Slug: "pokes", Name: "Pokes"},
		{ID: "bebidas", Slug: "bebidas", Name: "Bebidas"},
	}
	poke := domain.Product{
		ID:         1,
		Slug:       "poke-grande",
		Name:       "Poke Grande",
		BasePrice:  domain.Pesos(189),
		CategoryID: "pokes",
		Available:  true,
		Steps: []domain.Step{
			{
				ID: "base", Name: "Base", Label: "Elige tu base",
				MinSelections: 1, MaxSelections: 1, IncludedSelections: 1,
				Options: []domain.Option{
					{ID: "arroz", Name: "Arroz"},
					{ID: "quinoa", Name: "Quinoa"},
					{ID: "mix-verde", Name: "Mix Verde"},
				},
			},
			{
				ID: "proteina", Name: "Proteína", Label: "Elige tu proteína",
				MinSelections: 1, MaxSelections: 3, IncludedSelections: 1,
				PriceExtraPerSelection: domain.Pesos(25),
				Options: []domain.Option{
					{ID: "atun", Name: "Atún"},
					{ID: "salmon", Name: "Salmón", PriceExtra: domain.Pesos(15)},
					{ID: "pollo", Name: "Pollo"},
					{ID: "tofu", Name: "Tofu"},
				},
			},
			{
				ID: "toppings", Name: "Toppings", Label: "Agrega toppings",
				MinSelections: 0, MaxSelections: 0, IncludedSelections: 3,
				PriceExtraPerSelection: domain.Pesos(10),
				Options: []domain.Option{
					{ID: "mango", Name: "Mango"},
					{ID: "pepino", Name: "Pepino"},
					{ID: "edamame", Name: "Edamame"},
					{ID: "aguacate", Name: "Aguacate", PriceExtra: domain.Pesos(10)},
					{ID: "cebolla", Name: "Cebolla Crujiente"},
				},
			},
		},
	}
	products := []domain.Product{
		poke,
		{ID: 2, Slug: "agua-jamaica", Name: "Agua de Jamaica", BasePrice: domain.Pesos(35), CategoryID: "bebidas", Available: true},
		{ID: 3, Slug: "limonada", Name: "Limonada Mineral", BasePrice: domain.Pesos(40), CategoryID: "bebidas", Available: true},
		{ID: 4, Slug: "poke-atun", Name: "Poke de Atún", BasePrice: domain.Pesos(165), CategoryID: "pokes", Available: true},
		{ID: 5, Slug: "agua-horchata", Name: "Agua de Horchata", BasePrice: domain.Pesos(35), CategoryID: "bebidas"},
	}
	return categories, products
}

// Catalog returns an in-memory catalog loaded with Menu.
func Catalog(t testing.TB) *memory.Catalog {
	t.Helper()
	categories, products := Menu()
	c, err := memory.NewCatalog(categories, products...)
	require.NoError(t, err)
	return c
}
