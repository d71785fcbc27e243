package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderStatus is the customer order lifecycle.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderProcessing     OrderStatus = "processing"
	OrderInProduction   OrderStatus = "in_production"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// ActiveOrderStatuses are the statuses that still need production.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing}

var orderStatusRank = map[OrderStatus]int{
	OrderPending:        0,
	OrderConfirmed:      1,
	OrderProcessing:     2,
	OrderInProduction:   3,
	OrderReady:          4,
	OrderOutForDelivery: 5,
	OrderDelivered:      6,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	if s == OrderCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo allows forward moves along the lifecycle and cancellation
// from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return orderStatusRank[next] > orderStatusRank[s]
}

// Order is a customer order. DeliveryInfo holds the customer/address blob
// captured at checkout.
type Order struct {
	Base

	OrderNumber  string          `gorm:"size:64;uniqueIndex;not null" json:"order_number"`
	Status       OrderStatus     `gorm:"size:32;not null;default:pending;index" json:"status"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	CustomerID   string          `gorm:"size:36;index" json:"customer_id"`
	DeliveryInfo datatypes.JSON  `json:"delivery_info,omitempty"`
	BatchID      *string         `gorm:"size:36;index" json:"batch_id,omitempty"`

	ConfirmedAt           *time.Time `json:"confirmed_at,omitempty"`
	ProductionStartedAt   *time.Time `json:"production_started_at,omitempty"`
	ReadyAt               *time.Time `json:"ready_at,omitempty"`
	DeliveredAt           *time.Time `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
	IngredientsDeductedAt *time.Time `json:"ingredients_deducted_at,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// DeliveryInfo is the decoded delivery blob.
type DeliveryInfo struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Notes         string `json:"notes"`
}

// Delivery decodes DeliveryInfo. An empty blob yields a zero value.
func (o Order) Delivery() (DeliveryInfo, error) {
	var d DeliveryInfo
	if len(o.DeliveryInfo) == 0 {
		return d, nil
	}
	err := json.Unmarshal(o.DeliveryInfo, &d)
	return d, err
}

// OrderItem is one line of an order.
type OrderItem struct {
	Base

	OrderID          string          `gorm:"size:36;not null;index" json:"order_id"`
	ProductVariantID string          `gorm:"size:36;not null;index" json:"product_variant_id"`
	Quantity         int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`

	ProductVariant *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"product_variant,omitempty"`
}

func (OrderItem) TableName() string { return "order_items" }

// ProductionBatch ties orders of one product that are produced together.
type ProductionBatch struct {
	Base

	BatchName string `gorm:"size:160;not null" json:"batch_name"`
	ProductID string `gorm:"size:36;not null;index" json:"product_id"`
	Notes     string `gorm:"size:255" json:"notes"`

	Orders []Order `gorm:"foreignKey:BatchID" json:"orders,omitempty"`
}

func (ProductionBatch) TableName() string { return "production_batches" }
