package handlers

import (
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves categories, products and product reviews.
type CatalogHandler struct {
	catalog *services.CatalogService
	reviews *services.ReviewService
}

func NewCatalogHandler(catalog *services.CatalogService, reviews *services.ReviewService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews}
}

// RegisterRoutes registers the catalog routes. auth guards review submission.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/categories", h.HandleGetCategories)
	router.Get("/categories/:slug/products", h.HandleGetCategoryProducts)

	productRoutes := router.Group("/products")
	// fixed paths first so they are not taken as identifiers
	productRoutes.Get("/featured", h.HandleGetFeatured)
	productRoutes.Get("/search", h.HandleSearch)
	productRoutes.Get("/:identifier", h.HandleGetProduct)
	productRoutes.Get("/:identifier/reviews", h.HandleGetReviews)
	productRoutes.Post("/:identifier/reviews", auth, h.HandleAddReview)
}

func (h *CatalogHandler) HandleGetCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve categories")
	}
	return c.JSON(categories)
}

// HandleGetCategoryProducts lists a category. Query parameters: brand
// (repeatable or comma separated), price_min, price_max and sort.
func (h *CatalogHandler) HandleGetCategoryProducts(c *fiber.Ctx) error {
	filter := repositories.ProductFilter{
		Sort: repositories.ProductSort(c.Query("sort")),
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("brand") {
		for _, brand := range strings.Split(string(raw), ",") {
			if brand = strings.TrimSpace(brand); brand != "" {
				filter.Brands = append(filter.Brands, brand)
			}
		}
	}

	fields := map[string]string{}
	filter.PriceMin = priceQuery(c, "price_min", fields)
	filter.PriceMax = priceQuery(c, "price_max", fields)
	if len(fields) > 0 {
		return respondError(c, &services.ValidationError{Fields: fields}, "Invalid filter")
	}

	page, err := h.catalog.ProductsByCategory(c.UserContext(), c.Params("slug"), filter)
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(page)
}

func priceQuery(c *fiber.Ctx, key string, fields map[string]string) *decimal.Decimal {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		fields[key] = "must be a non-negative number"
		return nil
	}
	return &price
}

func (h *CatalogHandler) HandleGetFeatured(c *fiber.Ctx) error {
	products, err := h.catalog.Featured(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve featured products")
	}
	return c.JSON(products)
}

func (h *CatalogHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	products, err := h.catalog.Search(c.UserContext(), query)
	if err != nil {
		return respondError(c, err, "Could not search products")
	}
	return c.JSON(fiber.Map{
		"query":    strings.TrimSpace(query),
		"products": products,
	})
}

// HandleGetProduct returns a product with its reviews and average rating.
func (h *CatalogHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.ProductByIdentifier(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}
	summary, err := h.reviews.Summary(c.UserContext(), product.ID)
	if err != nil {
		return respondError(c, err, "Could not retrieve reviews")
	}
	return c.JSON(fiber.Map{
		"product":        product,
		"reviews":        summary.Reviews,
		"average_rating": summary.AverageRating,
		"review_count":   summary.Count,
	})
}

func (h *CatalogHandler) HandleGetReviews(c *fiber.Ctx) error {
	product, err := h.catalog.ProductByIdentifier(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}
	summary, err := h.reviews.Summary(c.UserContext(), product.ID)
	if err != nil {
		return respondError(c, err, "Could not retrieve reviews")
	}
	return c.JSON(summary)
}

func (h *CatalogHandler) HandleAddReview(c *fiber.Ctx) error {
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	product, err := h.catalog.ProductByIdentifier(c.UserContext(), c.Params("identifier"))
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}

	review, err := h.reviews.AddReview(c.UserContext(), product.ID, middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err, "Could not add review")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Review added",
		"review":  review,
	})
}
