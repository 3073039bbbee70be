// Package postgres persists committed orders in PostgreSQL through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/google/uuid"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// OrderStore implements ports.OrderStore on a GORM connection.
type OrderStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Option configures the OrderStore.
type Option func(*OrderStore)

// WithLogger configures a logger for the OrderStore.
func WithLogger(logger *slog.Logger) Option {
	return func(s *OrderStore) {
		s.logger = logger
	}
}

// Open connects to PostgreSQL with GORM's own logging silenced.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgresdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// NewOrderStore creates an order store on db.
func NewOrderStore(db *gorm.DB, opts ...Option) *OrderStore {
	s := &OrderStore{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the orders table.
func (s *OrderStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&OrderDTO{})
}

// InsertOrder stores the order. A replayed idempotency key returns the id of the
// first insert without writing.
func (s *OrderStore) InsertOrder(ctx context.Context, order *domain.Order) (string, error) {
	if len(order.Items) == 0 {
		return "", fmt.Errorf("%w: no items", domain.ErrOrderRejected)
	}
	if order.Phone == "" || order.CustomerName == "" {
		return "", fmt.Errorf("%w: missing customer", domain.ErrOrderRejected)
	}

	stored := *order
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.IdempotencyKey == "" {
		stored.IdempotencyKey = stored.ID
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	dto, err := fromDomain(&stored)
	if err != nil {
		return "", err
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(&dto)
	if result.Error != nil {
		return "", fmt.Errorf("failed to insert order: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return dto.ID, nil
	}

	var existing OrderDTO
	err = s.db.WithContext(ctx).Where("idempotency_key = ?", stored.IdempotencyKey).First(&existing).Error
	if err != nil {
		return "", fmt.Errorf("failed to load replayed order: %w", err)
	}
	s.logger.Info("Order insert replayed", "order_id", existing.ID, "idempotency_key", stored.IdempotencyKey)
	return existing.ID, nil
}

// RecentOrders returns the newest orders of phone.
func (s *OrderStore) RecentOrders(ctx context.Context, phone string, limit int) ([]domain.Order, error) {
	q := s.db.WithContext(ctx).Where("phone = ?", phone).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []OrderDTO
	if err := q.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := toDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
