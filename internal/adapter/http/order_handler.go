package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/http/middleware"
	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/gin-gonic/gin"
)

// OrderService is the slice of the order lifecycle manager the HTTP layer needs.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, shipping domain.ShippingDetails) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, newStatus domain.Status) error
	StorePaymentIntent(ctx context.Context, orderID, intentRef string) error
	GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error)
}

type OrderHandler struct {
	orders   OrderService
	payments usecase.PaymentGateway
	currency string
}

func NewOrderHandler(orders OrderService, payments usecase.PaymentGateway, currency string) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments, currency: currency}
}

type createOrderReq struct {
	ShippingAddress    string `json:"shippingAddress" binding:"required"`
	ShippingCity       string `json:"shippingCity" binding:"required"`
	ShippingPostalCode string `json:"shippingPostalCode" binding:"required"`
	ShippingCountry    string `json:"shippingCountry" binding:"required"`
}

// CreateOrder builds the order from the caller's cart, then opens a payment
// intent and attaches its reference. The client completes payment out of
// band and calls ConfirmPayment.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	userID := middleware.UserID(c)
	order, err := h.orders.CreateOrder(ctx, userID, domain.ShippingDetails{
		Address:    req.ShippingAddress,
		City:       req.ShippingCity,
		PostalCode: req.ShippingPostalCode,
		Country:    req.ShippingCountry,
	})
	if err != nil {
		status, code := createOrderError(err)
		c.JSON(status, gin.H{"error": code, "detail": err.Error()})
		return
	}

	intentRef, err := h.payments.CreateIntent(ctx, order.TotalAmount, h.currency)
	if err != nil {
		// The order exists; the client can retry payment later.
		logging.From(c).Error("payment intent creation failed", "order_id", order.ID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_intent_failed", "orderId": order.ID})
		return
	}
	if err := h.orders.StorePaymentIntent(ctx, order.ID, intentRef); err != nil {
		logging.From(c).Error("storing payment intent failed", "order_id", order.ID, "err", err)
	}
	order.PaymentIntentRef = intentRef

	c.JSON(http.StatusCreated, gin.H{"order": order, "paymentIntentRef": intentRef})
}

// Distinguishable reasons so the caller can react (prompt cart edits etc).
func createOrderError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCartEmpty):
		return http.StatusBadRequest, "cart_empty"
	case errors.Is(err, domain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity, "product_unavailable"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, "insufficient_stock"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.orders.ListUserOrders(ctx, middleware.UserID(c), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "page": page, "pageSize": pageSize})
}

type confirmPaymentReq struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// ConfirmPayment asks the gateway whether the intent succeeded and, if so,
// moves the order to PaymentReceived. The two failure modes stay
// distinguishable: payment not confirmed vs confirmed-but-update-failed.
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	confirmed, err := h.payments.Confirm(ctx, req.PaymentIntentID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment_gateway_error"})
		return
	}
	if !confirmed {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment_not_confirmed"})
		return
	}

	if err := h.orders.TransitionStatus(ctx, c.Param("id"), domain.StatusPaymentReceived); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		logging.From(c).Error("order update failed after confirmed payment",
			"order_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_update_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment confirmed"})
}
