package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// totalTolerance is the largest accepted difference between the total shown
// to the buyer and the total derived from the committed items.
var totalTolerance = decimal.New(1, -2)

// EventPublisher delivers order events to a message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderService handles business logic related to orders.
type OrderService struct {
	store     repositories.Store
	publisher EventPublisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case order events are not published.
func NewOrderService(store repositories.Store, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// CheckoutRequest is the shipping and payment form submitted at checkout.
// PaymentCode is a simulated one-time code; only its format is checked.
type CheckoutRequest struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Address     string `json:"address" validate:"required,max=1000"`
	PaymentCode string `json:"payment_code" validate:"required,len=6,number"`
}

// Checkout validates the form and the cart, then places the order.
// The cart is never modified here; the caller clears it on success.
func (s *OrderService) Checkout(ctx context.Context, buyerID uint, req CheckoutRequest, c cart.Cart) (*models.Order, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Address = strings.TrimSpace(req.Address)
	req.PaymentCode = strings.TrimSpace(req.PaymentCode)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, fieldError("cart", "is empty")
	}
	total := c.Total()
	if !total.IsPositive() {
		return nil, fieldError("cart", "total must be greater than zero")
	}

	return s.PlaceOrder(ctx, buyerID, req.FullName, req.Address, c, total)
}

// PlaceOrder turns the cart into an order in a single unit of work.
//
// For every line, in ascending product id order, the product is re-read, an
// item is written with the cart's price snapshot and the stock is decremented
// with a conditional update. Any failure rolls back the header, the items and
// every decrement. total is the amount shown to the buyer; the stored total is
// always the sum of the committed items.
//
// PlaceOrder is not idempotent: submitting the same cart twice creates two orders.
func (s *OrderService) PlaceOrder(ctx context.Context, buyerID uint, fullName, address string, c cart.Cart, total decimal.Decimal) (*models.Order, error) {
	lines, err := checkoutLines(c)
	if err != nil {
		return nil, err
	}
	if expected := c.Total(); expected.Sub(total).Abs().GreaterThan(totalTolerance) {
		return nil, fmt.Errorf("%w: submitted %s, cart %s", ErrTotalMismatch, total.StringFixed(2), expected.StringFixed(2))
	}

	order := &models.Order{
		UserID:          buyerID,
		TotalAmount:     decimal.Zero,
		Status:          models.OrderStatusNew,
		ShippingName:    fullName,
		ShippingAddress: address,
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		committed := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			item, err := reserveLine(ctx, tx, order.ID, line)
			if err != nil {
				return err
			}
			items = append(items, *item)
			committed = committed.Add(item.Subtotal())
		}

		if committed.Sub(total).Abs().GreaterThan(totalTolerance) {
			return fmt.Errorf("%w: submitted %s, items %s", ErrTotalMismatch, total.StringFixed(2), committed.StringFixed(2))
		}
		if err := tx.Orders().SetTotal(ctx, order.ID, committed); err != nil {
			return err
		}

		order.TotalAmount = committed
		order.Items = items
		return nil
	})
	if err != nil {
		log.Printf("Checkout for user %d rolled back: %v", buyerID, err)
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrTotalMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrOrderPlacement, err)
	}

	log.Printf("Order %d placed by user %d (total %s, %d lines)", order.ID, buyerID, order.TotalAmount.StringFixed(2), len(order.Items))
	s.publish(NewOrderEvent(uuid.NewString(), EventOrderCreated, order, s.now()))
	return order, nil
}

// checkoutLines rejects malformed lines and returns them sorted by product
// id, so concurrent checkouts touch product rows in the same order.
func checkoutLines(c cart.Cart) ([]cart.Line, error) {
	if c.IsEmpty() {
		return nil, fieldError("cart", "is empty")
	}
	lines := slices.Clone(c.Lines)
	for _, l := range lines {
		if l.ProductID == 0 {
			return nil, fieldError("cart", fmt.Sprintf("line %q has no product", l.Name))
		}
		if l.Quantity < 1 {
			return nil, fieldError("cart", fmt.Sprintf("quantity for %q must be at least 1", l.Name))
		}
	}
	slices.SortFunc(lines, func(a, b cart.Line) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	for i := 1; i < len(lines); i++ {
		if lines[i].ProductID == lines[i-1].ProductID {
			return nil, fieldError("cart", fmt.Sprintf("product %d appears twice", lines[i].ProductID))
		}
	}
	return lines, nil
}

// reserveLine writes one order item and takes its quantity out of stock.
func reserveLine(ctx context.Context, tx repositories.Store, orderID uint, line cart.Line) (*models.OrderItem, error) {
	product, err := tx.Products().GetByID(ctx, line.ProductID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, &CheckoutError{Err: ErrProductNotFound, ProductID: line.ProductID, Name: line.Name, Requested: line.Quantity}
	}
	if err != nil {
		return nil, err
	}
	if product.StockQuantity < line.Quantity {
		return nil, &CheckoutError{
			Err:       ErrInsufficientStock,
			ProductID: product.ID,
			Name:      product.Name,
			Requested: line.Quantity,
			Available: product.StockQuantity,
		}
	}

	name := line.Name
	if name == "" {
		name = product.Name
	}
	item := &models.OrderItem{
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductName: name,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
	}
	if err := tx.Orders().AddItem(ctx, item); err != nil {
		return nil, err
	}

	// the conditional update is the guard; the read above only yields a better message
	ok, err := tx.Products().DecrementStock(ctx, product.ID, line.Quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CheckoutError{
			Err:       ErrInsufficientStock,
			ProductID: product.ID,
			Name:      product.Name,
			Requested: line.Quantity,
			Available: product.StockQuantity,
		}
	}
	return item, nil
}

// OrderHistory returns the buyer's orders, newest first, with their items.
func (s *OrderService) OrderHistory(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.store.Orders().ListByUser(ctx, userID)
}

// OrderForUser returns an order only if userID owns it.
func (s *OrderService) OrderForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order with ID %d not found: %w", orderID, ErrNotFound)
	}
	return order, nil
}

// AllOrders retrieves all orders.
func (s *OrderService) AllOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.Orders().ListAll(ctx)
}

// OrderByID retrieves a single order by its ID.
func (s *OrderService) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	return s.store.Orders().GetByID(ctx, id)
}

// UpdateOrderStatus updates the status of an existing order. Setting the
// current status again is a no-op.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fieldError("status", fmt.Sprintf("invalid order status: %s", status))
	}

	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}

	if err := s.store.Orders().UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update order status for order %d: %w", id, err)
	}
	log.Printf("Order %d status changed from %s to %s", id, order.Status, status)
	order.Status = status

	s.publish(NewOrderEvent(uuid.NewString(), EventOrderStatusChanged, order, s.now()))
	return order, nil
}

// publish sends the event after the fact; failures are logged and never
// affect the already committed order.
func (s *OrderService) publish(event OrderEvent) {
	if s.publisher == nil {
		log.Println("RabbitMQ client is not initialized. Skipping message publication.")
		return
	}
	body, err := event.Encode()
	if err != nil {
		log.Printf("Failed to marshal %s event for order %d: %v", event.Type, event.OrderID, err)
		return
	}
	if err := s.publisher.Publish(event.Type, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %d: %v", event.Type, event.OrderID, err)
		return
	}
	log.Printf("Successfully published %s event for order %d", event.Type, event.OrderID)
}
