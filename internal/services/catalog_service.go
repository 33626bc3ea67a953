package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/slug"

	"github.com/shopspring/decimal"
)

// CatalogService serves categories and products to the storefront and the admin panel.
type CatalogService struct {
	store repositories.Store
}

func NewCatalogService(store repositories.Store) *CatalogService {
	return &CatalogService{store: store}
}

// CategoryInput creates a category. An empty Slug is derived from Name.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"max=100"`
}

// CategoryPage is a category listing with the brands available for filtering.
type CategoryPage struct {
	Category models.Category  `json:"category"`
	Products []models.Product `json:"products"`
	Brands   []string         `json:"brands"`
}

// ProductInput creates a product. Category is a category slug or numeric ID.
type ProductInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description" validate:"required"`
	Image         string          `json:"image" validate:"max=255"`
	Category      string          `json:"category" validate:"required"`
	Brand         string          `json:"brand" validate:"required,max=100"`
	StockQuantity int             `json:"stock_quantity"`
	Slug          string          `json:"slug" validate:"max=200"`
}

// ProductUpdate changes only the fields that are set.
type ProductUpdate struct {
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	Description   *string          `json:"description"`
	Image         *string          `json:"image"`
	Brand         *string          `json:"brand"`
	StockQuantity *int             `json:"stock_quantity"`
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories().List(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}
	if in.Slug == "" {
		return nil, fieldError("slug", "could not be derived from the name")
	}

	category := &models.Category{Name: in.Name, Slug: in.Slug}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fieldError("name", "a category with this name or slug already exists")
		}
		return nil, err
	}
	return category, nil
}

// ProductsByCategory lists one category with brand, price and sort options applied.
func (s *CatalogService) ProductsByCategory(ctx context.Context, categorySlug string, filter repositories.ProductFilter) (*CategoryPage, error) {
	if filter.PriceMin != nil && filter.PriceMax != nil && filter.PriceMin.GreaterThan(*filter.PriceMax) {
		return nil, fieldError("price_min", "must not exceed price_max")
	}
	switch filter.Sort {
	case "", repositories.SortNewest, repositories.SortPriceAsc, repositories.SortPriceDesc,
		repositories.SortNameAsc, repositories.SortNameDesc:
	default:
		return nil, fieldError("sort", fmt.Sprintf("unknown sort order %q", filter.Sort))
	}

	category, err := s.store.Categories().GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}
	products, err := s.store.Products().ListByCategory(ctx, category.ID, filter)
	if err != nil {
		return nil, err
	}
	brands, err := s.store.Products().Brands(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: *category, Products: products, Brands: brands}, nil
}

// ProductByIdentifier resolves a numeric ID first and falls back to the slug,
// so a product whose slug is all digits stays reachable.
func (s *CatalogService) ProductByIdentifier(ctx context.Context, identifier string) (*models.Product, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("empty product identifier: %w", ErrNotFound)
	}
	if id, err := strconv.ParseUint(identifier, 10, 64); err == nil && id > 0 {
		product, err := s.store.Products().GetByID(ctx, uint(id))
		if err == nil || !errors.Is(err, repositories.ErrNotFound) {
			return product, err
		}
	}
	return s.store.Products().GetBySlug(ctx, identifier)
}

func (s *CatalogService) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.store.Products().GetByID(ctx, id)
}

// ProductByName supports old links that address products by display name.
func (s *CatalogService) ProductByName(ctx context.Context, name string) (*models.Product, error) {
	return s.store.Products().GetByName(ctx, strings.TrimSpace(name))
}

// Search matches name or description, case-insensitively. A blank query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Product{}, nil
	}
	return s.store.Products().Search(ctx, query)
}

func (s *CatalogService) Brands(ctx context.Context, categorySlug string) ([]string, error) {
	category, err := s.store.Categories().GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}
	return s.store.Products().Brands(ctx, category.ID)
}

// Featured returns the first product of every category.
func (s *CatalogService) Featured(ctx context.Context) ([]models.Product, error) {
	return s.store.Products().Featured(ctx)
}

func (s *CatalogService) AllProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.Products().ListAll(ctx)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	in.Category = strings.TrimSpace(in.Category)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Slug = strings.TrimSpace(in.Slug)

	fields := map[string]string{}
	if err := validateStruct(in); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		fields = verr.Fields
	}
	if msg := checkPrice(in.Price); msg != "" {
		fields["price"] = msg
	}
	if in.StockQuantity < 0 {
		fields["stock_quantity"] = "must be 0 or more"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	productSlug := in.Slug
	if productSlug == "" {
		productSlug, err = s.uniqueProductSlug(ctx, slug.Make(in.Name))
		if err != nil {
			return nil, err
		}
	}

	product := &models.Product{
		Name:          in.Name,
		Price:         in.Price,
		Description:   in.Description,
		Image:         in.Image,
		CategoryID:    category.ID,
		Brand:         in.Brand,
		StockQuantity: in.StockQuantity,
	}
	if productSlug != "" {
		product.Slug = &productSlug
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fieldError("slug", "is already used by another product")
		}
		return nil, err
	}
	product.Category = category
	log.Printf("Created product %d (%s) in category %s", product.ID, product.Name, category.Slug)
	return product, nil
}

// UpdateProduct applies the fields set in in. Stock is written only when the
// request sets it, and then as an absolute value, so concurrent checkouts keep
// their decrements.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error) {
	if _, err := s.store.Products().GetByID(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	changes := repositories.ProductChanges{Price: in.Price, StockQuantity: in.StockQuantity}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			fields["name"] = "is required"
		case len(name) > 200:
			fields["name"] = "must be at most 200 characters"
		}
		changes.Name = &name
	}
	if in.Price != nil {
		if msg := checkPrice(*in.Price); msg != "" {
			fields["price"] = msg
		}
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		changes.Description = &description
	}
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		changes.Image = &image
	}
	if in.Brand != nil {
		brand := strings.TrimSpace(*in.Brand)
		changes.Brand = &brand
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		fields["stock_quantity"] = "must be 0 or more"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.store.Products().Update(ctx, id, changes); err != nil {
		return nil, err
	}
	return s.store.Products().GetByID(ctx, id)
}

func checkPrice(price decimal.Decimal) string {
	if !price.IsPositive() {
		return "must be greater than zero"
	}
	if !price.Equal(price.Round(2)) {
		return "must have at most 2 decimal places"
	}
	if price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return "must be less than 100000000"
	}
	return ""
}

func (s *CatalogService) resolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	var (
		category *models.Category
		err      error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		category, err = s.store.Categories().GetByID(ctx, uint(id))
	} else {
		category, err = s.store.Categories().GetBySlug(ctx, ref)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fieldError("category", fmt.Sprintf("unknown category %q", ref))
	}
	return category, err
}

// uniqueProductSlug appends -2, -3, ... to base until no product uses it.
func (s *CatalogService) uniqueProductSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		return "", nil
	}
	candidate := base
	for n := 2; ; n++ {
		_, err := s.store.Products().GetBySlug(ctx, candidate)
		if errors.Is(err, repositories.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
