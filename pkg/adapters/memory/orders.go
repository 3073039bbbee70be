package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/google/uuid"
)

var errUnavailable = errors.New("order store unavailable")

// OrderStore implements ports.OrderStore in memory.
type OrderStore struct {
	mu     sync.Mutex
	orders []domain.Order
	byKey  map[string]string

	// FailNext makes the next n inserts fail, for exercising rollback paths.
	FailNext int
}

// NewOrderStore creates an empty order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{byKey: make(map[string]string)}
}

// InsertOrder stores a copy of the order. Replays of the same idempotency key return the original id.
func (s *OrderStore) InsertOrder(ctx context.Context, order *domain.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext > 0 {
		s.FailNext--
		return "", fmt.Errorf("insert order: %w", errUnavailable)
	}
	if len(order.Items) == 0 {
		return "", fmt.Errorf("%w: no items", domain.ErrOrderRejected)
	}
	if id, ok := s.byKey[order.IdempotencyKey]; ok && order.IdempotencyKey != "" {
		return id, nil
	}

	stored := *order
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.Items = append([]domain.LineItem(nil), order.Items...)
	s.orders = append(s.orders, stored)
	if order.IdempotencyKey != "" {
		s.byKey[order.IdempotencyKey] = stored.ID
	}
	return stored.ID, nil
}

// RecentOrders returns the newest orders of phone.
func (s *OrderStore) RecentOrders(ctx context.Context, phone string, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Order
	for _, o := range s.orders {
		if o.Phone == phone {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Orders returns every stored order.
func (s *OrderStore) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders...)
}
