package handlers

import (
	"log"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles checkout and the buyer's order history.
type OrderHandler struct {
	service *services.OrderService
	carts   *middleware.CartStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, carts *middleware.CartStore) *OrderHandler {
	return &OrderHandler{
		service: service,
		carts:   carts,
	}
}

// RegisterRoutes registers the order routes. Every route requires auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// HandleGetOrders returns the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.OrderHistory(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID returns one of the caller's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID", nil)
	}
	order, err := h.service.OrderForUser(c.UserContext(), middleware.UserID(c), orderID)
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// HandleCheckout places an order from the session cart. The cart is emptied
// only after the order is committed.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return badRequest(c, "Invalid request body", err)
	}

	ct, err := h.carts.Load(c)
	if err != nil {
		return respondError(c, err, "Could not load cart")
	}

	order, err := h.service.Checkout(c.UserContext(), middleware.UserID(c), req, ct)
	if err != nil {
		return respondError(c, err, "Could not place order")
	}

	if err := h.carts.Save(c, cart.Cart{}); err != nil {
		// the order exists; a stale cart is the lesser problem
		log.Printf("Order %d placed but cart was not cleared: %v", order.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}
