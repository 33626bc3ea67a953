package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "storefront_session"

// setupApp builds the full app on a seeded in-memory database.
func setupApp(t *testing.T) (*fiber.App, repositories.Store) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	store := repositories.NewGORMStore(db)
	require.NoError(t, seed.Run(context.Background(), store))

	app := server.New(server.Options{
		Store:             store,
		JWTSecret:         "test_jwt_secret",
		JWTTTL:            time.Hour,
		SessionCookie:     sessionCookie,
		SessionExpiration: time.Hour,
		Quiet:             true,
	})
	return app, store
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

// client keeps the session cookie and bearer token between requests.
type client struct {
	t       *testing.T
	app     *fiber.App
	session string
	token   string
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set("Cookie", sessionCookie+"="+c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.app.Test(req, -1) // -1 for no timeout
	require.NoError(c.t, err)
	defer resp.Body.Close()

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			c.session = cookie.Value
		}
	}
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(c.t, err)
		if len(raw) > 0 {
			require.NoError(c.t, json.Unmarshal(raw, out), "body: %s", raw)
		}
	}
	return resp.StatusCode
}

func (c *client) login(email, password string) {
	c.t.Helper()
	var body struct {
		Token string `json:"token"`
	}
	status := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password}, &body)
	require.Equal(c.t, http.StatusOK, status)
	require.NotEmpty(c.t, body.Token)
	c.token = body.Token
}

func productID(t *testing.T, c *client, slug string) uint {
	t.Helper()
	var body struct {
		Product struct {
			ID uint `json:"id"`
		} `json:"product"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/"+slug, nil, &body))
	return body.Product.ID
}

func stockOf(t *testing.T, store repositories.Store, id uint) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

var shipping = map[string]string{
	"full_name":    "Jan Kowalski",
	"address":      "ul. Polna 1, 00-001 Warszawa",
	"payment_code": "123456",
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, _ := setupApp(t)
	c := &client{t: t, app: app}

	var registered map[string]interface{}
	status := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"full_name":        "Anna Nowak",
		"email":            "anna@example.com",
		"password":         "password123",
		"password_confirm": "password123",
	}, &registered)
	assert.Equal(t, http.StatusCreated, status)
	user := registered["user"].(map[string]interface{})
	assert.Equal(t, "anna@example.com", user["email"])
	assert.NotContains(t, user, "password")

	// Test duplicate email
	status = c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"full_name":        "Anna Nowak",
		"email":            "ANNA@example.com",
		"password":         "password123",
		"password_confirm": "password123",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Test password confirmation
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	status = c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"full_name":        "Piotr",
		"email":            "piotr@example.com",
		"password":         "password123",
		"password_confirm": "password124",
	}, &invalid)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, invalid.Errors, "password_confirm")

	// Test invalid credentials
	status = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "anna@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	c.login("anna@example.com", "password123")
	var profile map[string]interface{}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/account", nil, &profile))
	assert.Equal(t, "Anna Nowak", profile["full_name"])
}

func TestCatalogRoutes(t *testing.T) {
	app, _ := setupApp(t)
	c := &client{t: t, app: app}

	var featured []map[string]interface{}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/featured", nil, &featured))
	assert.Len(t, featured, 7)

	var search struct {
		Products []map[string]interface{} `json:"products"`
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/search?q=sony", nil, &search))
	assert.Len(t, search.Products, 2)

	var page struct {
		Products []map[string]interface{} `json:"products"`
		Brands   []string                 `json:"brands"`
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/categories/aparaty/products?sort=price_desc&brand=Sony,Canon", nil, &page))
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Sony A7 IV", page.Products[0]["name"])
	assert.Equal(t, []string{"Canon", "Sony"}, page.Brands)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/v1/categories/aparaty/products?price_min=abc", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/categories/nope/products", nil, nil))

	var detail struct {
		Product       map[string]interface{}   `json:"product"`
		Reviews       []map[string]interface{} `json:"reviews"`
		AverageRating float64                  `json:"average_rating"`
		ReviewCount   int                      `json:"review_count"`
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/canon-eos-r6", nil, &detail))
	assert.Equal(t, "Canon EOS R6", detail.Product["name"])
	assert.Equal(t, 2, detail.ReviewCount)
	assert.Equal(t, 4.5, detail.AverageRating)

	id := productID(t, c, "canon-eos-r6")
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/products/no-such-product", nil, nil))
}

func TestCheckoutFlow(t *testing.T) {
	app, store := setupApp(t)
	c := &client{t: t, app: app}
	mavic := productID(t, c, "dji-mavic-3")
	om5 := productID(t, c, "dji-om5")

	// anonymous visitors can fill a cart
	var cartBody struct {
		Count int    `json:"count"`
		Total string `json:"total"`
	}
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"product_id": mavic, "quantity": 2}, &cartBody))
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"product_name": "DJI OM 5"}, &cartBody))
	assert.Equal(t, 3, cartBody.Count)
	assert.Equal(t, "20597.00", cartBody.Total)
	require.NotEmpty(t, c.session)

	// checkout requires login
	var denied map[string]interface{}
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/v1/orders/checkout", shipping, &denied))
	assert.Equal(t, "/api/v1/auth/login", denied["login"])

	c.login(seed.UserEmail, seed.UserPassword)

	// invalid payment code
	badPayment := map[string]string{"full_name": "Jan", "address": "Polna 1", "payment_code": "12ab56"}
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/orders/checkout", badPayment, nil))

	var placed struct {
		Order struct {
			ID          uint            `json:"id"`
			Status      string          `json:"status"`
			TotalAmount decimal.Decimal `json:"total_amount"`
		} `json:"order"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/orders/checkout", shipping, &placed))
	assert.Equal(t, "new", placed.Order.Status)
	assert.True(t, decimal.RequireFromString("20597").Equal(placed.Order.TotalAmount), "total %s", placed.Order.TotalAmount)
	assert.Equal(t, 4, stockOf(t, store, mavic))
	assert.Equal(t, 19, stockOf(t, store, om5))

	// cart is emptied after a successful order
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/cart", nil, &cartBody))
	assert.Equal(t, 0, cartBody.Count)

	var history []map[string]interface{}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/orders", nil, &history))
	require.Len(t, history, 1)
	assert.Len(t, history[0]["items"], 2)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", placed.Order.ID), nil, nil))

	// empty cart cannot be checked out
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/orders/checkout", shipping, nil))
}

func TestCheckoutInsufficientStockKeepsCart(t *testing.T) {
	app, store := setupApp(t)
	c := &client{t: t, app: app}
	leica := productID(t, c, "leica-m6")

	c.login(seed.UserEmail, seed.UserPassword)
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"product_id": leica, "quantity": 3}, nil))

	var conflict map[string]interface{}
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/v1/orders/checkout", shipping, &conflict))
	assert.Contains(t, conflict["message"], "Leica M6")
	assert.EqualValues(t, 2, conflict["available"])
	assert.Equal(t, 2, stockOf(t, store, leica))

	var cartBody struct {
		Count int `json:"count"`
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/cart", nil, &cartBody))
	assert.Equal(t, 3, cartBody.Count)

	// lower the quantity and retry
	assert.Equal(t, http.StatusOK, c.do(http.MethodPut, fmt.Sprintf("/api/v1/cart/items/%d", leica), map[string]int{"quantity": 2}, nil))
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/orders/checkout", shipping, nil))
	assert.Equal(t, 0, stockOf(t, store, leica))
}

func TestReviews(t *testing.T) {
	app, _ := setupApp(t)
	c := &client{t: t, app: app}

	review := map[string]interface{}{"rating": 4, "comment": "Bardzo dobry gimbal, polecam."}
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/v1/products/dji-rs3-pro/reviews", review, nil))

	c.login(seed.UserEmail, seed.UserPassword)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/products/dji-rs3-pro/reviews", map[string]interface{}{"rating": 9, "comment": "Bardzo dobry gimbal, polecam."}, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/v1/products/dji-rs3-pro/reviews", map[string]interface{}{"rating": 4, "comment": "krótko"}, nil))
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/v1/products/dji-rs3-pro/reviews", review, nil))

	var summary struct {
		Reviews       []map[string]interface{} `json:"reviews"`
		AverageRating float64                  `json:"average_rating"`
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/dji-rs3-pro/reviews", nil, &summary))
	require.Len(t, summary.Reviews, 1)
	assert.Equal(t, 4.0, summary.AverageRating)
	author := summary.Reviews[0]["author"].(map[string]interface{})
	assert.Equal(t, seed.UserEmail, author["email"])

	// a later review from another account is listed first
	admin := &client{t: t, app: app}
	admin.login(seed.AdminEmail, seed.AdminPassword)
	assert.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/v1/products/dji-rs3-pro/reviews", map[string]interface{}{"rating": 5, "comment": "Stabilny nawet z ciężkim obiektywem."}, nil))
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/products/dji-rs3-pro/reviews", nil, &summary))
	require.Len(t, summary.Reviews, 2)
	assert.EqualValues(t, 5, summary.Reviews[0]["rating"])
	author = summary.Reviews[0]["author"].(map[string]interface{})
	assert.Equal(t, seed.AdminEmail, author["email"])
	assert.Equal(t, 4.5, summary.AverageRating)
}

func TestAdminRoutes(t *testing.T) {
	app, _ := setupApp(t)
	customer := &client{t: t, app: app}
	customer.login(seed.UserEmail, seed.UserPassword)
	admin := &client{t: t, app: app}
	admin.login(seed.AdminEmail, seed.AdminPassword)

	anonymous := &client{t: t, app: app}
	assert.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodGet, "/api/v1/admin/orders", nil, nil))
	assert.Equal(t, http.StatusForbidden, customer.do(http.MethodGet, "/api/v1/admin/orders", nil, nil))

	// customer places an order for the admin to ship
	om5 := productID(t, customer, "dji-om5")
	customer.do(http.MethodPost, "/api/v1/cart/items", map[string]interface{}{"product_id": om5}, nil)
	var placed struct {
		Order struct {
			ID uint `json:"id"`
		} `json:"order"`
	}
	require.Equal(t, http.StatusCreated, customer.do(http.MethodPost, "/api/v1/orders/checkout", shipping, &placed))

	var orders []map[string]interface{}
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/v1/admin/orders", nil, &orders))
	assert.Len(t, orders, 1)

	statusPath := fmt.Sprintf("/api/v1/admin/orders/%d/status", placed.Order.ID)
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPatch, statusPath, map[string]string{"status": "lost"}, nil))
	assert.Equal(t, http.StatusOK, admin.do(http.MethodPatch, statusPath, map[string]string{"status": "shipped"}, nil))

	var mine map[string]interface{}
	assert.Equal(t, http.StatusOK, customer.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", placed.Order.ID), nil, &mine))
	assert.Equal(t, "shipped", mine["status"])

	// catalog maintenance
	var category map[string]interface{}
	assert.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": "Obiektywy"}, &category))
	assert.Equal(t, "obiektywy", category["slug"])

	var product map[string]interface{}
	assert.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/v1/admin/products", map[string]interface{}{
		"name":           "Sigma 35mm F1.4 Art",
		"price":          "3299.00",
		"description":    "Jasny obiektyw stałoogniskowy",
		"category":       "obiektywy",
		"brand":          "Sigma",
		"stock_quantity": 4,
	}, &product))
	assert.Equal(t, "sigma-35mm-f1-4-art", product["slug"])
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodPost, "/api/v1/admin/products", map[string]interface{}{"name": "Bad", "price": "-1"}, nil))

	assert.Equal(t, http.StatusOK, admin.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/products/%v", product["id"]), map[string]interface{}{"stock_quantity": 10}, nil))

	// accounts: history blocks deletion, self deletion is refused
	var users []map[string]interface{}
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/v1/admin/users", nil, &users))
	require.Len(t, users, 2)
	var adminID, customerID interface{}
	for _, u := range users {
		if strings.EqualFold(u["email"].(string), seed.AdminEmail) {
			adminID = u["id"]
		} else {
			customerID = u["id"]
		}
	}
	assert.Equal(t, http.StatusBadRequest, admin.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%v", adminID), nil, nil))
	assert.Equal(t, http.StatusConflict, admin.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%v", customerID), nil, nil))

	var created map[string]interface{}
	assert.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"full_name": "Tymczasowy",
		"email":     "temp@example.com",
		"password":  "secret12",
	}, &created))
	assert.Equal(t, http.StatusNoContent, admin.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%v", created["id"]), nil, nil))
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)
	c := &client{t: t, app: app}

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}
