package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a checked-out cart
type Order struct {
	ID           string          `json:"id"`
	TenantDomain string          `json:"tenantDomain"`
	CustomerName string          `json:"customerName"`
	Phone        string          `json:"phone,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Items        []OrderItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	QRCode       string          `json:"qrCode,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// OrderItem is a line of an order with the price charged
type OrderItem struct {
	DishID   string          `json:"dishId"`
	DishName string          `json:"dishName"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderRepository defines data access for orders
type OrderRepository interface {
	Create(order *Order) error
	GetByID(tenantDomain, id string) (*Order, error)
	ListByTenant(tenantDomain string) ([]*Order, error)
}
