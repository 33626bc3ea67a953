package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler is the back office: catalog maintenance, order fulfilment and accounts.
type AdminHandler struct {
	catalog *services.CatalogService
	orders  *services.OrderService
	users   *services.UserService
}

func NewAdminHandler(catalog *services.CatalogService, orders *services.OrderService, users *services.UserService) *AdminHandler {
	return &AdminHandler{catalog: catalog, orders: orders, users: users}
}

// RegisterRoutes mounts /admin behind auth and admin.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, auth, admin fiber.Handler) {
	adminRoutes := router.Group("/admin", auth, admin)

	adminRoutes.Post("/categories", h.HandleCreateCategory)

	adminRoutes.Get("/products", h.HandleGetProducts)
	adminRoutes.Post("/products", h.HandleCreateProduct)
	adminRoutes.Patch("/products/:id", h.HandleUpdateProduct)

	adminRoutes.Get("/orders", h.HandleGetOrders)
	adminRoutes.Get("/orders/:id", h.HandleGetOrder)
	adminRoutes.Patch("/orders/:id/status", h.HandleUpdateOrderStatus)

	adminRoutes.Get("/users", h.HandleGetUsers)
	adminRoutes.Post("/users", h.HandleCreateUser)
	adminRoutes.Put("/users/:id", h.HandleUpdateUser)
	adminRoutes.Delete("/users/:id", h.HandleDeleteUser)
}

func (h *AdminHandler) HandleCreateCategory(c *fiber.Ctx) error {
	var req services.CategoryInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Could not create category")
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *AdminHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.catalog.AllProducts(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

func (h *AdminHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	product, err := h.catalog.CreateProduct(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *AdminHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID", nil)
	}
	var req services.ProductUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	product, err := h.catalog.UpdateProduct(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleGetOrders retrieves all orders.
func (h *AdminHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.orders.AllOrders(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

func (h *AdminHandler) HandleGetOrder(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID", nil)
	}
	order, err := h.orders.OrderByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// UpdateStatusRequest represents the request body for updating an order status.
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *AdminHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID", nil)
	}
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	order, err := h.orders.UpdateOrderStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, err, "Could not update order status")
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}

func (h *AdminHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve users")
	}
	return c.JSON(users)
}

func (h *AdminHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req services.AdminUserInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	user, err := h.users.Create(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Could not create user")
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AdminHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID", nil)
	}
	var req services.AdminUserUpdate
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	user, err := h.users.Update(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err, "Could not update user")
	}
	return c.JSON(user)
}

func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID", nil)
	}
	if err := h.users.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
		return respondError(c, err, "Could not delete user")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
