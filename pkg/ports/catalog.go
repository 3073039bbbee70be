package ports

import (
	"context"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// Catalog provides read-only access to the menu.
type Catalog interface {
	// GetProduct returns the available product with the given slug, or
	// domain.ErrProductNotFound when it does not exist or is not sold anymore.
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
	// GetCategories returns the menu categories in display order.
	GetCategories(ctx context.Context) ([]domain.Category, error)
	// GetProductsByCategory returns the available products of a category.
	GetProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error)
	// ListProducts returns every available product.
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// OrderStore persists committed orders.
type OrderStore interface {
	// InsertOrder stores the order and returns its id. Inserting twice with the
	// same IdempotencyKey returns the id of the first insert.
	InsertOrder(ctx context.Context, order *domain.Order) (string, error)
	// RecentOrders returns the latest orders of a customer, newest first.
	RecentOrders(ctx context.Context, phone string, limit int) ([]domain.Order, error)
}
