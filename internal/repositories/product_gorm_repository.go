package repositories

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, translate(err))
	}
	return &product, nil
}

// GetBySlug retrieves a single product by its slug.
func (r *GORMProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "slug = ?", slug).Error; err != nil {
		return nil, fmt.Errorf("failed to get product by slug %s: %w", slug, translate(err))
	}
	return &product, nil
}

// GetByName retrieves the oldest product with exactly this display name.
func (r *GORMProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Where("name = ?", name).
		Order("id ASC").
		First(&product).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get product by name %s: %w", name, translate(err))
	}
	return &product, nil
}

// ListByCategory returns the products of one category after applying filter.
func (r *GORMProductRepository) ListByCategory(ctx context.Context, categoryID uint, filter ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("category_id = ?", categoryID)
	if len(filter.Brands) > 0 {
		q = q.Where("brand IN ?", filter.Brands)
	}
	if filter.PriceMin != nil {
		q = q.Where("price >= ?", filter.PriceMin.InexactFloat64())
	}
	if filter.PriceMax != nil {
		q = q.Where("price <= ?", filter.PriceMax.InexactFloat64())
	}

	var products []models.Product
	if err := q.Order(orderBy(filter.Sort)).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products for category %d: %w", categoryID, err)
	}
	return products, nil
}

func orderBy(sort ProductSort) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC, id ASC"
	case SortPriceDesc:
		return "price DESC, id ASC"
	case SortNameAsc:
		return "name ASC, id ASC"
	case SortNameDesc:
		return "name DESC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}

// Search does a case-insensitive substring match over name and description.
func (r *GORMProductRepository) Search(ctx context.Context, query string) ([]models.Product, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var products []models.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern).
		Order("name ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products for %q: %w", query, err)
	}
	return products, nil
}

// Brands lists the distinct non-empty brands within a category.
func (r *GORMProductRepository) Brands(ctx context.Context, categoryID uint) ([]string, error) {
	var brands []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ? AND brand <> ''", categoryID).
		Distinct("brand").
		Order("brand ASC").
		Pluck("brand", &brands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list brands for category %d: %w", categoryID, err)
	}
	return brands, nil
}

// Featured returns the first product of every category, ordered by category name.
func (r *GORMProductRepository) Featured(ctx context.Context) ([]models.Product, error) {
	firstPerCategory := r.db.Model(&models.Product{}).Select("MIN(id)").Group("category_id")

	var products []models.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Select("products.*").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("products.id IN (?)", firstPerCategory).
		Order("categories.name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}
	return products, nil
}

// ListAll retrieves all products from the database.
func (r *GORMProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Category").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update writes the changed columns of an existing product. Callers check
// existence first; MySQL reports zero affected rows for unchanged values, so
// the row count is not used as an existence check.
func (r *GORMProductRepository) Update(ctx context.Context, id uint, changes ProductChanges) error {
	cols := changes.columns()
	if len(cols) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(cols).Error
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, translate(err))
	}
	return nil
}

// DecrementStock atomically subtracts quantity if the stock covers it.
func (r *GORMProductRepository) DecrementStock(ctx context.Context, id uint, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if res.Error != nil {
		return false, fmt.Errorf("failed to decrement stock for product %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
