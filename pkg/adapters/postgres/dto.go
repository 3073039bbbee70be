package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
)

// OrderDTO is the row layout of the orders table.
type OrderDTO struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	IdempotencyKey string `gorm:"uniqueIndex;not null"`
	Phone          string `gorm:"index;not null"`
	CustomerName   string `gorm:"not null"`
	DeliveryMethod string `gorm:"type:varchar(16);not null"`
	PickupTime     string
	Address        string
	Latitude       *float64
	Longitude      *float64
	Items          string `gorm:"type:jsonb;not null"`
	TotalCents     int64  `gorm:"not null"`
	Status         string `gorm:"type:varchar(16);not null"`
	CreatedAt      time.Time `gorm:"index"`
}

// TableName overrides GORM's pluralized default.
func (OrderDTO) TableName() string {
	return "orders"
}

func fromDomain(o *domain.Order) (OrderDTO, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return OrderDTO{}, fmt.Errorf("failed to marshal order items: %w", err)
	}
	dto := OrderDTO{
		ID:             o.ID,
		IdempotencyKey: o.IdempotencyKey,
		Phone:          o.Phone,
		CustomerName:   o.CustomerName,
		DeliveryMethod: string(o.DeliveryMethod),
		PickupTime:     o.PickupTime,
		Address:        o.Address,
		Items:          string(items),
		TotalCents:     int64(o.Total),
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
	}
	if o.Location != nil {
		lat, lng := o.Location.Latitude, o.Location.Longitude
		dto.Latitude, dto.Longitude = &lat, &lng
	}
	return dto, nil
}

func toDomain(dto OrderDTO) (domain.Order, error) {
	var items []domain.LineItem
	if err := json.Unmarshal([]byte(dto.Items), &items); err != nil {
		return domain.Order{}, fmt.Errorf("order %s: failed to unmarshal items: %w", dto.ID, err)
	}
	o := domain.Order{
		ID:             dto.ID,
		IdempotencyKey: dto.IdempotencyKey,
		Phone:          dto.Phone,
		CustomerName:   dto.CustomerName,
		DeliveryMethod: domain.DeliveryMethod(dto.DeliveryMethod),
		PickupTime:     dto.PickupTime,
		Address:        dto.Address,
		Items:          items,
		Total:          domain.Money(dto.TotalCents),
		Status:         domain.OrderStatus(dto.Status),
		CreatedAt:      dto.CreatedAt,
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		o.Location = &domain.Location{Latitude: *dto.Latitude, Longitude: *dto.Longitude}
	}
	return o, nil
}
