package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Routing keys of the events published on the orders exchange.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body published for order lifecycle changes.
type OrderEvent struct {
	EventID    string             `json:"event_id"`
	Type       string             `json:"type"`
	OrderID    uint               `json:"order_id"`
	UserID     uint               `json:"user_id"`
	Status     models.OrderStatus `json:"status"`
	Total      decimal.Decimal    `json:"total"`
	Items      []OrderEventItem   `json:"items,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type OrderEventItem struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderEvent builds the event for order. Items are included only when
// they are loaded on the order.
func NewOrderEvent(eventID, eventType string, order *models.Order, at time.Time) OrderEvent {
	event := OrderEvent{
		EventID:    eventID,
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.TotalAmount,
		OccurredAt: at.UTC(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return event
}

func (e OrderEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeOrderEvent parses a message body produced by Encode.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var e OrderEvent
	err := json.Unmarshal(body, &e)
	return e, err
}

// HandleOrderEvent is the consumer side of the orders queue. It logs the
// event and rejects bodies that are not order events.
func HandleOrderEvent(routingKey string, body []byte) error {
	event, err := DecodeOrderEvent(body)
	if err != nil {
		return fmt.Errorf("malformed %s message: %w", routingKey, err)
	}
	if event.OrderID == 0 || event.Type == "" {
		return fmt.Errorf("%s message has no order", routingKey)
	}
	switch event.Type {
	case EventOrderCreated:
		log.Printf("Order %d created for user %d: %d lines, total %s", event.OrderID, event.UserID, len(event.Items), event.Total.StringFixed(2))
	case EventOrderStatusChanged:
		log.Printf("Order %d is now %s", event.OrderID, event.Status)
	default:
		log.Printf("Ignoring %s event for order %d", event.Type, event.OrderID)
	}
	return nil
}
