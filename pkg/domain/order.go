package domain

import (
	"fmt"
	"time"
)

// LineItem is a product in the cart or in an order.
type LineItem struct {
	ProductID int64  `json:"product_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	// Details describes builder selections, one line per step.
	Details []string `json:"details,omitempty"`
}

// Subtotal is the unit price times quantity.
func (li LineItem) Subtotal() Money {
	return li.UnitPrice * Money(li.Quantity)
}

// Label renders "2x Poke Grande".
func (li LineItem) Label() string {
	return fmt.Sprintf("%dx %s", li.Quantity, li.Name)
}

// CartTotal sums every line item.
func CartTotal(items []LineItem) Money {
	var total Money
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// AddToCart merges item into cart, consolidating quantities of simple products.
// Customized items are always appended as separate lines.
func AddToCart(cart []LineItem, item LineItem) []LineItem {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if len(item.Details) == 0 {
		for i := range cart {
			if cart[i].Slug == item.Slug && len(cart[i].Details) == 0 {
				cart[i].Quantity += item.Quantity
				return cart
			}
		}
	}
	return append(cart, item)
}

// DeliveryMethod is how the customer receives the order.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
)

// OrderStatus is the initial status assigned when an order is committed.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPreOrder OrderStatus = "pre_order"
)

// Order is a committed purchase handed to the order store.
type Order struct {
	ID             string         `json:"id"`
	IdempotencyKey string         `json:"idempotency_key"`
	Phone          string         `json:"phone"`
	CustomerName   string         `json:"customer_name"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	PickupTime     string         `json:"pickup_time,omitempty"`
	Address        string         `json:"address,omitempty"`
	Location       *Location      `json:"location,omitempty"`
	Items          []LineItem     `json:"items"`
	Total          Money          `json:"total"`
	Status         OrderStatus    `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// CustomerProfile caches what we know about a returning customer.
type CustomerProfile struct {
	Name      string     `json:"name,omitempty"`
	Address   string     `json:"address,omitempty"`
	LastOrder []LineItem `json:"last_order,omitempty"`
	Orders    int        `json:"orders,omitempty"`
}
