package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // Placed, not yet settled
	OrderStatusCompleted OrderStatus = "completed" // Paid; purchases granted
	OrderStatusRefunded  OrderStatus = "refunded"  // Money returned; purchases revoked
)

// ParseOrderStatus maps a string to an OrderStatus.
func ParseOrderStatus(status string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(OrderStatusPending):
		return OrderStatusPending, nil
	case string(OrderStatusCompleted):
		return OrderStatusCompleted, nil
	case string(OrderStatusRefunded):
		return OrderStatusRefunded, nil
	default:
		return "", ErrInvalidOrderStatus
	}
}

type Order struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    string          `gorm:"index;not null" json:"user_id"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status    OrderStatus     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderUpdate covers the only mutable order field.
type OrderUpdate struct {
	Status *OrderStatus `json:"status"`
}

func (u OrderUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	return cols
}

// OrderItem freezes the unit price paid at checkout.
type OrderItem struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID   string          `gorm:"index;not null" json:"order_id"`
	ProductID string          `gorm:"not null" json:"product_id"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// PurchaseRecord is the durable entitlement to a product.
type PurchaseRecord struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_purchase_user_product_order" json:"user_id"`
	ProductID   string    `gorm:"not null;uniqueIndex:idx_purchase_user_product_order" json:"product_id"`
	OrderID     string    `gorm:"not null;index;uniqueIndex:idx_purchase_user_product_order" json:"order_id"`
	PurchasedAt time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}

func (PurchaseRecord) TableName() string {
	return "purchased_products"
}

func (p *PurchaseRecord) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
