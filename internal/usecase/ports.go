package usecase

import (
	"context"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/shopspring/decimal"
)

// Tx scopes one unit of work against the order repository. Every operation
// issued through it is atomic as a group: either Commit applies all of them
// or Rollback discards all of them.
type Tx interface {
	Commit() error
	Rollback() error

	// FindByID loads an order with its items and locks the row for the
	// duration of the transaction. Returns domain.ErrOrderNotFound on miss.
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)
	InsertOrder(ctx context.Context, o *domain.Order) error
	UpdateOrder(ctx context.Context, o *domain.Order) error

	// FindProductByID returns domain.ErrProductUnavailable on miss.
	FindProductByID(ctx context.Context, productID string) (*domain.Product, error)

	// AdjustProductStock applies delta as a conditional write: the update
	// only lands if the resulting stock stays >= 0, otherwise it returns
	// domain.ErrStockConsistency and the caller must roll back.
	AdjustProductStock(ctx context.Context, productID string, delta int) error
}

type OrderRepo interface {
	Begin(ctx context.Context) (Tx, error)

	// Non-transactional reads.
	GetByID(ctx context.Context, orderID, userID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error)
}

// CatalogReader is the read-only product lookup used outside the order
// transaction (cart validation).
type CatalogReader interface {
	FindActiveProduct(ctx context.Context, productID string) (*domain.Product, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, userID string) error
}

type UserDirectory interface {
	EmailByID(ctx context.Context, userID string) (string, error)
}

// EventPublisher puts the order-paid event on the durable queue. At-least-once:
// consumers must tolerate redelivery.
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, msg OrderPaidMsg) error
}

// StatusAuditor receives every status transition, best-effort, for downstream
// analytics and reconciliation. Failures never affect the transition.
type StatusAuditor interface {
	PublishStatusChanged(ctx context.Context, msg OrderStatusChangedMsg) error
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
	Confirm(ctx context.Context, intentRef string) (bool, error)
}

type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, email, orderID string, total decimal.Decimal) error
}

// NotificationDedup guards the notification-send boundary against duplicate
// deliveries for the same order. Marking happens only after a successful send
// so a failed attempt stays retryable.
type NotificationDedup interface {
	AlreadySent(ctx context.Context, orderID string) (bool, error)
	MarkSent(ctx context.Context, orderID string) error
}
