package queue

import (
	"context"

	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
)

// OrderPaidHandler is the fulfillment side of the pipeline: it turns one
// order-paid event into one confirmation email. Duplicate deliveries are
// expected (at-least-once); the dedup store suppresses repeat sends for an
// order whose email already went out.
type OrderPaidHandler struct {
	Sender usecase.NotificationSender
	Dedup  usecase.NotificationDedup // optional
}

func NewOrderPaidHandler(sender usecase.NotificationSender, dedup usecase.NotificationDedup) *OrderPaidHandler {
	return &OrderPaidHandler{Sender: sender, Dedup: dedup}
}

// HandlePaid is intended to be used with the JSON adapter
// (queue.JSONHandler[usecase.OrderPaidMsg]). Returning an error requeues the
// delivery; the order's durable status is unaffected either way.
func (h *OrderPaidHandler) HandlePaid(ctx context.Context, msg usecase.OrderPaidMsg) error {
	log := logging.FromCtx(ctx).With("order_id", msg.OrderID)

	if h.Dedup != nil {
		sent, err := h.Dedup.AlreadySent(ctx, msg.OrderID)
		if err != nil {
			// Dedup is best-effort; fall through and send.
			log.Warn("dedup lookup failed", "err", err)
		} else if sent {
			log.Info("duplicate order-paid delivery, skipping send")
			return nil
		}
	}

	if err := h.Sender.SendOrderConfirmation(ctx, msg.UserEmail, msg.OrderID, msg.TotalAmount); err != nil {
		return err
	}
	log.Info("order confirmation sent", "email", msg.UserEmail, "total", msg.TotalAmount)

	// Mark only after a successful send so failed attempts stay retryable.
	if h.Dedup != nil {
		if err := h.Dedup.MarkSent(ctx, msg.OrderID); err != nil {
			log.Warn("dedup mark failed", "err", err)
		}
	}
	return nil
}
