package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a denormalized snapshot taken when the product is added; the
// catalog is re-read at checkout, so these fields are display data only.
type CartItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl"`
}

// Cart is the ephemeral, per-user pre-checkout list. Lines keep insertion
// order; adding a product already present merges by quantity increment.
type Cart struct {
	UserID      string     `json:"userId"`
	Items       []CartItem `json:"items"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

func NewCart(userID string) *Cart {
	return &Cart{UserID: userID}
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Add merges into an existing line for the same product, or appends.
func (c *Cart) Add(item CartItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.LastUpdated = time.Now().UTC()
			return nil
		}
	}
	c.Items = append(c.Items, item)
	c.LastUpdated = time.Now().UTC()
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.LastUpdated = time.Now().UTC()
			return nil
		}
	}
	return ErrProductUnavailable
}

func (c *Cart) Remove(productID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	c.LastUpdated = time.Now().UTC()
}

// Total is the cart-display total from snapshot prices; the order total is
// recomputed from the catalog at checkout.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
