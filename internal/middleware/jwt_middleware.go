package middleware

import (
	"errors"
	"log"
	"strings"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Keys of the identity stored in fiber.Ctx locals by AuthRequired.
const (
	LocalUserID  = "user_id"
	LocalEmail   = "email"
	LocalIsAdmin = "is_admin"
)

// LoginPath is returned to unauthenticated clients so they know where to sign in.
const LoginPath = "/api/v1/auth/login"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalIsAdmin, claims.IsAdmin)

		return c.Next()
	}
}

// AdminRequired must run after AuthRequired. It re-checks the account through
// AuthService.Authorize, the single place where admin access is decided.
func AdminRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == 0 {
			return unauthorized(c, "Authentication required")
		}

		if _, err := authService.Authorize(c.UserContext(), userID); err != nil {
			switch {
			case errors.Is(err, services.ErrForbidden):
				log.Printf("User %d denied access to %s", userID, c.Path())
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"message": "Admin privileges required",
				})
			case errors.Is(err, services.ErrUnauthorized):
				return unauthorized(c, "Account no longer exists")
			}
			log.Printf("Error authorizing user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not authorize request",
			})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's ID, or 0 when the request is anonymous.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalUserID).(uint)
	return id
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"login":   LoginPath,
	})
}
