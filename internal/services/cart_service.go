package services

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CartService builds cart lines from the catalog. The cart itself lives in
// the caller's session and is passed by value.
type CartService struct {
	products repositories.ProductRepository
}

func NewCartService(products repositories.ProductRepository) *CartService {
	return &CartService{products: products}
}

// AddToCartRequest addresses the product by ID, or by name for old links.
type AddToCartRequest struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity" validate:"max=999"`
}

// Add snapshots the product's current price into the cart. A quantity below
// one adds a single unit. Adding a product already in the cart increases its
// quantity and keeps the earlier price.
func (s *CartService) Add(ctx context.Context, c cart.Cart, req AddToCartRequest) (cart.Cart, error) {
	if err := validateStruct(req); err != nil {
		return c, err
	}
	var (
		product *models.Product
		err     error
	)
	switch {
	case req.ProductID != 0:
		product, err = s.products.GetByID(ctx, req.ProductID)
	case strings.TrimSpace(req.ProductName) != "":
		product, err = s.products.GetByName(ctx, strings.TrimSpace(req.ProductName))
	default:
		return c, fieldError("product_id", "is required")
	}
	if err != nil {
		return c, err
	}

	line := cart.Line{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Image:     product.Image,
		Quantity:  req.Quantity,
	}
	if product.Category != nil {
		line.Category = product.Category.Name
	}
	return c.Add(line), nil
}

// Update sets the quantity of a line already in the cart; zero or less removes it.
func (s *CartService) Update(c cart.Cart, productID uint, quantity int) (cart.Cart, error) {
	if _, ok := c.Line(productID); !ok {
		return c, fmt.Errorf("product %d is not in the cart: %w", productID, ErrNotFound)
	}
	if quantity > cart.MaxQuantity {
		return c, fieldError("quantity", fmt.Sprintf("must be at most %d", cart.MaxQuantity))
	}
	return c.SetQuantity(productID, quantity), nil
}

func (s *CartService) Remove(c cart.Cart, productID uint) (cart.Cart, error) {
	if _, ok := c.Line(productID); !ok {
		return c, fmt.Errorf("product %d is not in the cart: %w", productID, ErrNotFound)
	}
	return c.Remove(productID), nil
}

func (s *CartService) Clear(c cart.Cart) cart.Cart {
	return c.Clear()
}
