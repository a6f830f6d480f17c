package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPaymentReceived Status = "PAYMENT_RECEIVED"
	StatusProcessing      Status = "PROCESSING"
	StatusShipped         Status = "SHIPPED"
	StatusDelivered       Status = "DELIVERED"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
)

// ShippingDetails is the address snapshot captured at checkout.
type ShippingDetails struct {
	Address    string `json:"shippingAddress"`
	City       string `json:"shippingCity"`
	PostalCode string `json:"shippingPostalCode"`
	Country    string `json:"shippingCountry"`
}

// Order is the durable record created from a cart at checkout. The financial
// fields are computed once at creation and never recomputed; only Status, the
// lifecycle timestamps and PaymentIntentRef change afterwards.
type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	UserID           string          `json:"userId"`
	Status           Status          `json:"status"`
	SubTotal         decimal.Decimal `json:"subTotal"`
	Tax              decimal.Decimal `json:"tax"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PaymentIntentRef string          `json:"paymentIntentRef,omitempty"`
	Shipping         ShippingDetails `json:"shipping"`
	CreatedAt        time.Time       `json:"createdAt"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	ShippedAt        *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt      *time.Time      `json:"deliveredAt,omitempty"`
	Items            []OrderItem     `json:"items"`
}

// OrderItem is a fixed price snapshot: PriceAtPurchase and SubTotal are taken
// from the catalog at creation time and stay decoupled from later price changes.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
	SubTotal        decimal.Decimal `json:"subTotal"`
}
