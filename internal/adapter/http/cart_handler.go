package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/http/middleware"
	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts   usecase.CartStore
	catalog usecase.CatalogReader
}

func NewCartHandler(carts usecase.CartStore, catalog usecase.CatalogReader) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.carts.Get(ctx, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":      cart,
		"total":     cart.Total(),
		"itemCount": cart.ItemCount(),
	})
}

type addCartItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// AddItem snapshots the product into the cart line; the order transaction
// re-reads price and stock at checkout anyway.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	product, err := h.catalog.FindActiveProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductUnavailable) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "product_unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if product.StockQuantity < req.Quantity {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient_stock"})
		return
	}

	userID := middleware.UserID(c)
	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if err := cart.Add(domain.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    req.Quantity,
		ImageURL:    product.ImageURL,
	}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_quantity"})
		return
	}
	if err := h.carts.Set(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	userID := middleware.UserID(c)
	cart, err := h.carts.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	cart.Remove(c.Param("productId"))
	if err := h.carts.Set(ctx, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.carts.Clear(ctx, middleware.UserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Status(http.StatusNoContent)
}
