package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one persisted cart row. There is at most one row per (user, product).
type CartItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID string    `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *CartItem) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Quantity < 1 {
		return ErrQuantityInvalid
	}
	return nil
}

type CartItemUpdate struct {
	Quantity *int `json:"quantity"`
}

func (u CartItemUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Quantity != nil {
		cols["quantity"] = *u.Quantity
	}
	return cols
}

// CartLine is what the client holds: a product snapshot plus quantity.
type CartLine struct {
	Product
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// LineTotal is price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine builds a client line from a persisted row with its product preloaded.
func NewCartLine(item CartItem) CartLine {
	return CartLine{Product: item.Product, ItemID: item.ID, Quantity: item.Quantity}
}
