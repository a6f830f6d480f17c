package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCartAdd_MergesSameProduct(t *testing.T) {
	c := NewCart("u1")

	require.NoError(t, c.Add(CartItem{ProductID: "p1", UnitPrice: price("19.99"), Quantity: 2}))
	require.NoError(t, c.Add(CartItem{ProductID: "p2", UnitPrice: price("5.00"), Quantity: 1}))
	require.NoError(t, c.Add(CartItem{ProductID: "p1", UnitPrice: price("19.99"), Quantity: 3}))

	require.Len(t, c.Items, 2)
	assert.Equal(t, "p1", c.Items[0].ProductID)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 6, c.ItemCount())
}

func TestCartAdd_RejectsNonPositiveQuantity(t *testing.T) {
	c := NewCart("u1")

	assert.ErrorIs(t, c.Add(CartItem{ProductID: "p1", Quantity: 0}), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(CartItem{ProductID: "p1", Quantity: -1}), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestCartSetQuantity(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(CartItem{ProductID: "p1", UnitPrice: price("19.99"), Quantity: 2}))

	require.NoError(t, c.SetQuantity("p1", 7))
	assert.Equal(t, 7, c.Items[0].Quantity)

	assert.ErrorIs(t, c.SetQuantity("p1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.SetQuantity("absent", 1), ErrProductUnavailable)
}

func TestCartRemoveAndTotal(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(CartItem{ProductID: "p1", UnitPrice: price("19.99"), Quantity: 2}))
	require.NoError(t, c.Add(CartItem{ProductID: "p2", UnitPrice: price("5.00"), Quantity: 1}))

	assert.True(t, price("44.98").Equal(c.Total()))

	c.Remove("p2")
	require.Len(t, c.Items, 1)
	assert.True(t, price("39.98").Equal(c.Total()))

	c.Remove("not-there")
	assert.Len(t, c.Items, 1)
}
