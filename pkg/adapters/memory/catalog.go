package memory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Catalog implements ports.Catalog over a fixed set of products.
type Catalog struct {
	categories []domain.Category
	products   []domain.Product
	bySlug     map[string]int
}

// catalogFile is the YAML layout of a menu fixture.
type catalogFile struct {
	Categories []domain.Category `yaml:"categories"`
	Products   []domain.Product  `yaml:"products"`
}

// NewCatalog creates a Catalog from domain objects.
func NewCatalog(categories []domain.Category, products ...domain.Product) (*Catalog, error) {
	c := &Catalog{
		categories: categories,
		products:   products,
		bySlug:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if p.Slug == "" {
			return nil, fmt.Errorf("product %q missing slug", p.Name)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("duplicate product slug %q", p.Slug)
		}
		for _, st := range p.Steps {
			if len(st.Options) == 0 {
				return nil, fmt.Errorf("product %q step %q has no options", p.Slug, st.ID)
			}
		}
		c.bySlug[p.Slug] = i
	}
	return c, nil
}

// ParseCatalog decodes a YAML menu. Prices are written in cents.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(f.Categories, f.Products...)
}

// LoadCatalog reads a YAML menu file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// GetProduct returns a copy of the available product with the given slug.
// Products taken off the menu are reported as not found.
func (c *Catalog) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	i, ok := c.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok || !c.products[i].Available {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, slug)
	}
	p := c.products[i]
	return &p, nil
}

// GetCategories returns every category.
func (c *Catalog) GetCategories(ctx context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), c.categories...), nil
}

// GetProductsByCategory returns the available products of a category.
func (c *Catalog) GetProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range c.products {
		if p.CategoryID == categoryID && p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListProducts returns every available product.
func (c *Catalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range c.products {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}
