package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validCheckout = services.CheckoutRequest{
	FullName:    "Jan Kowalski",
	Address:     "ul. Polna 1, 00-001 Warszawa",
	PaymentCode: "123456",
}

func TestOrderService_CheckoutPlacesOrder(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 5)
	gimbal := f.product(t, "Ronin", "10.50", 3)
	pub := &recordingPublisher{}
	svc := services.NewOrderService(f.store, pub)

	c := cart.Cart{}.Add(lineFor(drone, 2)).Add(lineFor(gimbal, 1))
	order, err := svc.Checkout(context.Background(), f.buyer.ID, validCheckout, c)
	require.NoError(t, err)

	assert.NotZero(t, order.ID)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("210.50")))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 3, f.stock(t, drone.ID))
	assert.Equal(t, 2, f.stock(t, gimbal.ID))

	stored, err := svc.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("210.50")))
	assert.Equal(t, "ul. Polna 1, 00-001 Warszawa", stored.ShippingAddress)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "Mavic 3", stored.Items[0].ProductName)
	assert.Equal(t, 2, stored.Items[0].Quantity)

	require.Len(t, pub.keys, 1)
	assert.Equal(t, services.EventOrderCreated, pub.keys[0])
	event, err := services.DecodeOrderEvent(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Len(t, event.Items, 2)
}

func TestOrderService_CheckoutRejectsInvalidForm(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 5)
	svc := services.NewOrderService(f.store, nil)
	c := cart.Cart{}.Add(lineFor(drone, 1))

	tests := []struct {
		name  string
		req   services.CheckoutRequest
		field string
	}{
		{"letters in payment code", services.CheckoutRequest{FullName: "Jan", Address: "Polna 1", PaymentCode: "12ab56"}, "payment_code"},
		{"short payment code", services.CheckoutRequest{FullName: "Jan", Address: "Polna 1", PaymentCode: "12345"}, "payment_code"},
		{"missing name", services.CheckoutRequest{FullName: "  ", Address: "Polna 1", PaymentCode: "123456"}, "full_name"},
		{"missing address", services.CheckoutRequest{FullName: "Jan", PaymentCode: "123456"}, "address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Checkout(context.Background(), f.buyer.ID, tt.req, c)
			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.ErrorIs(t, err, services.ErrValidation)
		})
	}
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, 5, f.stock(t, drone.ID))
}

func TestOrderService_CheckoutRejectsEmptyCart(t *testing.T) {
	f := newFixture(t)
	svc := services.NewOrderService(f.store, nil)

	_, err := svc.Checkout(context.Background(), f.buyer.ID, validCheckout, cart.Cart{})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is empty", verr.Fields["cart"])
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
}

func TestOrderService_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	first := f.product(t, "Mavic 3", "100.00", 5)
	short := f.product(t, "Ronin", "10.00", 1)
	svc := services.NewOrderService(f.store, nil)

	c := cart.Cart{}.Add(lineFor(first, 2)).Add(lineFor(short, 3))
	_, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())

	require.ErrorIs(t, err, services.ErrInsufficientStock)
	var cerr *services.CheckoutError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, short.ID, cerr.ProductID)
	assert.Equal(t, 3, cerr.Requested)
	assert.Equal(t, 1, cerr.Available)
	assert.Contains(t, err.Error(), "Ronin")

	assert.Equal(t, 5, f.stock(t, first.ID), "decrement of the first line must be rolled back")
	assert.Equal(t, 1, f.stock(t, short.ID))
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderItem{}))
}

func TestOrderService_ConditionalDecrementGuardsStaleReads(t *testing.T) {
	f := newFixture(t)
	first := f.product(t, "Mavic 3", "100.00", 5)
	short := f.product(t, "Ronin", "10.00", 1)

	// reads report more stock than the row holds, so only the decrement can refuse
	store := &hookedStore{Store: f.store, afterGet: func(p *models.Product) {
		p.StockQuantity += 10
	}}
	svc := services.NewOrderService(store, nil)

	c := cart.Cart{}.Add(lineFor(first, 2)).Add(lineFor(short, 3))
	_, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())

	require.ErrorIs(t, err, services.ErrInsufficientStock)
	var cerr *services.CheckoutError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, short.ID, cerr.ProductID)
	assert.Equal(t, 3, cerr.Requested)

	assert.Equal(t, 5, f.stock(t, first.ID))
	assert.Equal(t, 1, f.stock(t, short.ID))
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderItem{}))
}

func TestOrderService_MissingProductAbortsCheckout(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 5)
	svc := services.NewOrderService(f.store, nil)

	ghost := cart.Line{ProductID: drone.ID + 100, Name: "Old drone", UnitPrice: decimal.NewFromInt(50), Quantity: 1}
	c := cart.Cart{}.Add(lineFor(drone, 1)).Add(ghost)
	_, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())

	require.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Contains(t, err.Error(), "Old drone")
	assert.Equal(t, 5, f.stock(t, drone.ID))
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
}

func TestOrderService_UsesCartPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 5)
	svc := services.NewOrderService(f.store, nil)

	c := cart.Cart{}.Add(lineFor(drone, 1))
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", drone.ID).
		Update("price", decimal.RequireFromString("150.00")).Error)

	order, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())
	require.NoError(t, err)

	stored, err := svc.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(100)))
}

func TestOrderService_RejectsTotalMismatch(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 5)
	svc := services.NewOrderService(f.store, nil)
	c := cart.Cart{}.Add(lineFor(drone, 1))

	_, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, decimal.RequireFromString("90.00"))
	require.ErrorIs(t, err, services.ErrTotalMismatch)
	assert.Equal(t, 5, f.stock(t, drone.ID))

	// within rounding tolerance
	_, err = svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, decimal.RequireFromString("100.01"))
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, drone.ID))
}

func TestOrderService_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	last := f.product(t, "Mavic 3", "100.00", 1)
	other := f.user(t, "other@example.com", "secret1", false)
	svc := services.NewOrderService(f.store, nil)

	c := cart.Cart{}.Add(lineFor(last, 1))
	buyers := []uint{f.buyer.ID, other.ID}
	errs := make([]error, len(buyers))

	var wg sync.WaitGroup
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer uint) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), buyer, "Jan", "Polna 1", c, c.Total())
		}(i, buyer)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, services.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, last.ID))
	assert.Equal(t, int64(1), f.count(t, &models.Order{}))
}

func TestOrderService_StockIsConserved(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 10)
	svc := services.NewOrderService(f.store, nil)

	for _, qty := range []int{3, 4, 5} {
		c := cart.Cart{}.Add(lineFor(drone, qty))
		_, _ = svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())
	}

	var sold int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).
		Where("product_id = ?", drone.ID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sold).Error)
	assert.Equal(t, int64(7), sold)
	assert.Equal(t, 10, f.stock(t, drone.ID)+int(sold))
}

func TestOrderService_PublishFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 2)
	svc := services.NewOrderService(f.store, &recordingPublisher{failWith: errors.New("broker down")})

	c := cart.Cart{}.Add(lineFor(drone, 1))
	order, err := svc.PlaceOrder(context.Background(), f.buyer.ID, "Jan", "Polna 1", c, c.Total())
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, 1, f.stock(t, drone.ID))
}

func TestOrderService_OrderHistory(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 10)
	svc := services.NewOrderService(f.store, nil)
	ctx := context.Background()

	var placed []uint
	for i := 1; i <= 2; i++ {
		c := cart.Cart{}.Add(lineFor(drone, i))
		order, err := svc.PlaceOrder(ctx, f.buyer.ID, "Jan", "Polna 1", c, c.Total())
		require.NoError(t, err)
		placed = append(placed, order.ID)
	}

	history, err := svc.OrderHistory(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, placed[1], history[0].ID)
	assert.Len(t, history[0].Items, 1)

	again, err := svc.OrderHistory(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, len(history), len(again))
	assert.Equal(t, 7, f.stock(t, drone.ID))

	other, err := svc.OrderHistory(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = svc.OrderForUser(ctx, f.admin.ID, placed[0])
	assert.ErrorIs(t, err, services.ErrNotFound)
	mine, err := svc.OrderForUser(ctx, f.buyer.ID, placed[0])
	require.NoError(t, err)
	assert.Equal(t, placed[0], mine.ID)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	drone := f.product(t, "Mavic 3", "100.00", 10)
	pub := &recordingPublisher{}
	svc := services.NewOrderService(f.store, pub)
	ctx := context.Background()

	c := cart.Cart{}.Add(lineFor(drone, 1))
	order, err := svc.PlaceOrder(ctx, f.buyer.ID, "Jan", "Polna 1", c, c.Total())
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatus("lost"))
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.UpdateOrderStatus(ctx, order.ID+99, models.OrderStatusShipped)
	assert.ErrorIs(t, err, services.ErrNotFound)

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	_, err = svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)

	assert.Equal(t, []string{services.EventOrderCreated, services.EventOrderStatusChanged}, pub.keys)

	stored, err := svc.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, stored.Status)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(100)))
}
