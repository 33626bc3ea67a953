package handlers

import (
	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler exposes the session cart. Anonymous visitors can use it.
type CartHandler struct {
	service *services.CartService
	carts   *middleware.CartStore
}

func NewCartHandler(service *services.CartService, carts *middleware.CartStore) *CartHandler {
	return &CartHandler{service: service, carts: carts}
}

func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:productID", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:productID", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func cartView(ct cart.Cart) fiber.Map {
	lines := ct.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return fiber.Map{
		"lines": lines,
		"count": ct.Count(),
		"total": ct.Total().StringFixed(2),
	}
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}
	return c.JSON(cartView(ct))
}

// HandleAddItem adds a product by product_id, or by product_name for old clients.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req services.AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}
	ct, err = h.service.Add(c.UserContext(), ct, req)
	if err != nil {
		return respondError(c, err, "Could not add product to cart")
	}
	if err := h.carts.Save(c, ct); err != nil {
		return respondError(c, err, "Could not save cart")
	}
	return c.Status(fiber.StatusCreated).JSON(cartView(ct))
}

func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	productID, ok := idParam(c, "productID")
	if !ok {
		return badRequest(c, "Invalid product ID", nil)
	}
	var req updateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}
	ct, err = h.service.Update(ct, productID, req.Quantity)
	if err != nil {
		return respondError(c, err, "Could not update cart")
	}
	if err := h.carts.Save(c, ct); err != nil {
		return respondError(c, err, "Could not save cart")
	}
	return c.JSON(cartView(ct))
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	productID, ok := idParam(c, "productID")
	if !ok {
		return badRequest(c, "Invalid product ID", nil)
	}

	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}
	ct, err = h.service.Remove(ct, productID)
	if err != nil {
		return respondError(c, err, "Could not update cart")
	}
	if err := h.carts.Save(c, ct); err != nil {
		return respondError(c, err, "Could not save cart")
	}
	return c.JSON(cartView(ct))
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}
	ct = h.service.Clear(ct)
	if err := h.carts.Save(c, ct); err != nil {
		return respondError(c, err, "Could not save cart")
	}
	return c.JSON(cartView(ct))
}
