package repositories

import (
	"context"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// ProductSort is the ordering applied to category listings.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
)

// ProductFilter narrows a category listing. Zero values mean "no filter".
type ProductFilter struct {
	Brands   []string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
	Sort     ProductSort
}

// ProductChanges lists the columns an update writes. Nil fields are left as
// stored, so an edit never rewrites stock it did not set.
type ProductChanges struct {
	Name          *string
	Price         *decimal.Decimal
	Description   *string
	Image         *string
	Brand         *string
	StockQuantity *int
}

func (c ProductChanges) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.Image != nil {
		cols["image"] = *c.Image
	}
	if c.Brand != nil {
		cols["brand"] = *c.Brand
	}
	if c.StockQuantity != nil {
		cols["stock_quantity"] = *c.StockQuantity
	}
	return cols
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetByName(ctx context.Context, name string) (*models.Product, error)
	ListByCategory(ctx context.Context, categoryID uint, filter ProductFilter) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	Brands(ctx context.Context, categoryID uint) ([]string, error)
	Featured(ctx context.Context) ([]models.Product, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes only the columns set in changes.
	Update(ctx context.Context, id uint, changes ProductChanges) error
	// DecrementStock subtracts quantity only if enough stock remains and
	// reports whether the row was updated.
	DecrementStock(ctx context.Context, id uint, quantity int) (bool, error)
}
