package domain

import (
	"fmt"
	"time"
)

// CartLine pairs a product with a quantity and a price snapshot taken when the
// line was created.
type CartLine struct {
	ID        string   `json:"id"`
	ProductID string   `json:"productId"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unitPrice"`
}

// Subtotal returns UnitPrice * Quantity.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart holds the ordered cart lines of one shopper session.
//
// Every operation is total: none returns an error. A Cart is not safe for
// concurrent use.
type Cart struct {
	lines []CartLine
	now   func() time.Time
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{now: time.Now}
}

// RestoreCart builds a cart from previously persisted lines. Lines that violate
// the cart invariants (empty product id, quantity below one, duplicate product)
// are dropped; the first line for a product wins.
func RestoreCart(lines []CartLine) *Cart {
	c := NewCart()
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if _, dup := seen[l.ProductID]; dup {
			continue
		}
		seen[l.ProductID] = struct{}{}
		c.lines = append(c.lines, l)
	}
	return c
}

// WithClock replaces the clock used to derive line ids.
func (c *Cart) WithClock(now func() time.Time) *Cart {
	c.now = now
	return c
}

// AddItem adds quantity units of p. An existing line for p.ID is incremented
// instead of duplicated. The call is a no-op, and returns false, when quantity
// is below one or when the resulting line quantity would exceed p.Stock.
func (c *Cart) AddItem(p Product, quantity int) bool {
	if quantity < 1 {
		return false
	}

	if i := c.indexOf(p.ID); i >= 0 {
		next := c.lines[i].Quantity + quantity
		if next > p.Stock {
			return false
		}
		c.lines[i].Quantity = next
		return true
	}

	if quantity > p.Stock {
		return false
	}

	snapshot := p
	c.lines = append(c.lines, CartLine{
		ID:        fmt.Sprintf("%s-%d", p.ID, c.now().UnixMilli()),
		ProductID: p.ID,
		Product:   &snapshot,
		Quantity:  quantity,
		UnitPrice: p.Price,
	})
	return true
}

// RemoveItem deletes the line for productID. Absent lines are ignored.
func (c *Cart) RemoveItem(productID string) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// UpdateQuantity sets the quantity of the line for productID. A quantity of
// zero or below removes the line. Stock is not re-validated here.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// IsInCart reports whether a line exists for productID.
func (c *Cart) IsInCart(productID string) bool {
	return c.indexOf(productID) >= 0
}

// ItemQuantity returns the quantity held for productID, or 0.
func (c *Cart) ItemQuantity(productID string) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Total returns the sum of UnitPrice * Quantity over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Count returns the sum of quantities over all lines.
func (c *Cart) Count() int {
	var count int
	for _, l := range c.lines {
		count += l.Quantity
	}
	return count
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
