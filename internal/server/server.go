// Package server assembles the Fiber application from the services.
package server

import (
	"errors"
	"log"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Options carries everything the HTTP layer depends on.
type Options struct {
	Store             repositories.Store
	Publisher         services.EventPublisher // nil disables order events
	JWTSecret         string
	JWTTTL            time.Duration
	SessionCookie     string
	SessionExpiration time.Duration
	// Ping reports database health for /health. Optional.
	Ping func() error
	// Quiet disables the request logger, for tests.
	Quiet bool
}

// New builds the Fiber app with every route under /api/v1.
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	if !opts.Quiet {
		app.Use(logger.New()) // Request logger
	}

	// --- Services ---
	authService := services.NewAuthService(opts.Store.Users(), opts.JWTSecret, opts.JWTTTL)
	catalogService := services.NewCatalogService(opts.Store)
	cartService := services.NewCartService(opts.Store.Products())
	orderService := services.NewOrderService(opts.Store, opts.Publisher)
	reviewService := services.NewReviewService(opts.Store.Reviews(), opts.Store.Products())
	userService := services.NewUserService(opts.Store)

	carts := middleware.NewCartStore(opts.SessionCookie, opts.SessionExpiration)
	auth := middleware.AuthRequired(authService)
	admin := middleware.AdminRequired(authService)

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, auth)
	handlers.NewCatalogHandler(catalogService, reviewService).RegisterRoutes(apiV1, auth)
	handlers.NewCartHandler(cartService, carts).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService, carts).RegisterRoutes(apiV1, auth)
	handlers.NewAdminHandler(catalogService, orderService, userService).RegisterRoutes(apiV1, auth, admin)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": opts.Publisher != nil,
		}
		if opts.Ping != nil {
			if err := opts.Ping(); err != nil {
				log.Printf("Health check failed: %v", err)
				status["status"] = "unhealthy"
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code == fiber.StatusInternalServerError {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(code).JSON(fiber.Map{"message": "Internal server error"})
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
