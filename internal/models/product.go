package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the store.
type Product struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"type:varchar(200);not null;index"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Image         string          `json:"image" gorm:"type:varchar(255)"`
	CategoryID    uint            `json:"category_id" gorm:"index;not null"`
	Category      *Category       `json:"category,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Brand         string          `json:"brand" gorm:"type:varchar(100);index"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0;check:stock_quantity >= 0"`
	Slug          *string         `json:"slug,omitempty" gorm:"type:varchar(200);uniqueIndex"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SlugValue returns the slug or an empty string when the product has none.
func (p Product) SlugValue() string {
	if p.Slug == nil {
		return ""
	}
	return *p.Slug
}
