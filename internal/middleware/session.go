package middleware

import (
	"fmt"
	"time"

	"storefront/internal/cart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const cartKey = "cart"

// CartStore keeps each visitor's cart in their server-side session.
type CartStore struct {
	sessions *session.Store
}

// NewCartStore creates the session store. Sessions live in memory and are
// identified by the given cookie.
func NewCartStore(cookie string, expiration time.Duration) *CartStore {
	return &CartStore{
		sessions: session.New(session.Config{
			Expiration:     expiration,
			KeyLookup:      "cookie:" + cookie,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
	}
}

// Load returns the cart of the current session; a new visitor gets an empty cart.
func (s *CartStore) Load(c *fiber.Ctx) (cart.Cart, error) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("failed to load session: %w", err)
	}
	raw, _ := sess.Get(cartKey).(string)
	return cart.Decode(raw)
}

// Save stores ct in the session and refreshes the session cookie.
func (s *CartStore) Save(c *fiber.Ctx, ct cart.Cart) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	encoded, err := ct.Encode()
	if err != nil {
		return err
	}
	sess.Set(cartKey, encoded)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
