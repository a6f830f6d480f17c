package usecase

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPaidMsg is the wire contract between the API and the fulfillment
// worker, which may be deployed independently. Field names are the
// compatibility surface; do not rename.
type OrderPaidMsg struct {
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	UserEmail   string          `json:"userEmail"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// OrderStatusChangedMsg is emitted to Kafka on every transition for
// downstream analytics.
type OrderStatusChangedMsg struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}
