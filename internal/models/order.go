package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a customer order. TotalAmount and ShippingAddress never
// change after the order is committed; only Status is mutable.
type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"user_id" gorm:"index;not null"`
	User            *User           `json:"user,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	OrderDate       time.Time       `json:"order_date" gorm:"autoCreateTime"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null"`
	ShippingName    string          `json:"shipping_name" gorm:"type:varchar(200)"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// OrderItem represents a single line within an order.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"index;not null"`
	ProductID   uint            `json:"product_id" gorm:"index;not null"`
	Product     *Product        `json:"-" gorm:"constraint:OnDelete:RESTRICT"`
	ProductName string          `json:"product_name" gorm:"type:varchar(200)"`
	Quantity    int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"` // price at the time of order
}

// Subtotal is UnitPrice multiplied by Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
