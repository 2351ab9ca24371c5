package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string          `gorm:"index;not null" json:"category"` // free-text label, e.g. "Templates"
	Image       string          `json:"image"`
	Rating      float64         `gorm:"default:0" json:"rating"`
	Reviews     int             `gorm:"default:0" json:"reviews"`
	Features    StringList      `gorm:"type:text" json:"features"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Features == nil {
		p.Features = StringList{}
	}
	return nil
}

// ProductUpdate lists the catalog fields an admin may change. Nil fields are left alone.
type ProductUpdate struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	Rating      *float64         `json:"rating"`
	Reviews     *int             `json:"reviews"`
	Features    *[]string        `json:"features"`
}

// Columns converts the update into a gorm column map.
func (u ProductUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	if u.Category != nil {
		cols["category"] = *u.Category
	}
	if u.Image != nil {
		cols["image"] = *u.Image
	}
	if u.Rating != nil {
		cols["rating"] = *u.Rating
	}
	if u.Reviews != nil {
		cols["reviews"] = *u.Reviews
	}
	if u.Features != nil {
		cols["features"] = StringList(*u.Features)
	}
	return cols
}

// Apply patches p in place.
func (u ProductUpdate) Apply(p *Product) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
	if u.Rating != nil {
		p.Rating = *u.Rating
	}
	if u.Reviews != nil {
		p.Reviews = *u.Reviews
	}
	if u.Features != nil {
		p.Features = append(StringList(nil), (*u.Features)...)
	}
}

// Validate enforces the catalog constraints shared by create and update.
func (p *Product) Validate() error {
	if p.Title == "" {
		return ErrProductTitleRequired
	}
	if p.Price.IsNegative() {
		return ErrProductPriceInvalid
	}
	if p.Rating < 0 || p.Rating > 5 {
		return ErrProductRatingInvalid
	}
	if p.Reviews < 0 {
		return ErrProductReviewsInvalid
	}
	return nil
}
