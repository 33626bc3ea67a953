// Package cart holds the session-scoped shopping cart.
//
// Cart is a value: every operation returns a new Cart and never mutates the
// receiver, so callers decide when (and whether) to persist the result.
package cart

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Line is one cart entry. UnitPrice is captured when the product is first
// added and is not refreshed from the catalog afterwards.
type Line struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice multiplied by Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MaxQuantity is the largest quantity a single line can hold.
const MaxQuantity = 999

// Cart is an ordered list of lines keyed by product id.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Add appends line, or increases the quantity of the existing line for the
// same product. The existing line keeps its original price snapshot.
// Quantities are capped at MaxQuantity.
func (c Cart) Add(line Line) Cart {
	line.Quantity = max(1, min(line.Quantity, MaxQuantity))
	lines := slices.Clone(c.Lines)
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i].Quantity = min(lines[i].Quantity+line.Quantity, MaxQuantity)
			return Cart{Lines: lines}
		}
	}
	return Cart{Lines: append(lines, line)}
}

// Remove drops the line for productID. Unknown ids are ignored.
func (c Cart) Remove(productID uint) Cart {
	lines := slices.DeleteFunc(slices.Clone(c.Lines), func(l Line) bool {
		return l.ProductID == productID
	})
	return Cart{Lines: lines}
}

// SetQuantity replaces the quantity for productID; quantity <= 0 removes the
// line and larger values are capped at MaxQuantity.
func (c Cart) SetQuantity(productID uint, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	quantity = min(quantity, MaxQuantity)
	lines := slices.Clone(c.Lines)
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
		}
	}
	return Cart{Lines: lines}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

// Line returns the line for productID.
func (c Cart) Line(productID uint) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count is the total number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of line subtotals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Encode serializes the cart for session storage.
func (c Cart) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode cart: %w", err)
	}
	return string(b), nil
}

// Decode parses a cart previously produced by Encode. An empty string is an empty cart.
func Decode(s string) (Cart, error) {
	var c Cart
	if s == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	return c, nil
}
