package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService is the order lifecycle manager: it builds orders from carts,
// drives the status state machine and is the only place inventory is mutated.
type OrderService struct {
	repo   OrderRepo
	carts  CartStore
	users  UserDirectory
	events EventPublisher
	audit  StatusAuditor // optional

	taxRate      decimal.Decimal
	shippingCost decimal.Decimal
}

func NewOrderService(repo OrderRepo, carts CartStore, users UserDirectory, events EventPublisher, audit StatusAuditor, taxRate, shippingCost decimal.Decimal) *OrderService {
	return &OrderService{
		repo:         repo,
		carts:        carts,
		users:        users,
		events:       events,
		audit:        audit,
		taxRate:      taxRate,
		shippingCost: shippingCost,
	}
}

// CreateOrder turns the user's cart into a durable order inside one
// transaction. Stock is validated against the current catalog but NOT
// deducted; deduction happens on the PaymentReceived transition, so a
// created-but-unpaid order never locks inventory.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, shipping domain.ShippingDetails) (*domain.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	items := make([]domain.OrderItem, 0, len(cart.Items))
	subTotal := decimal.Zero
	orderID := uuid.NewString()

	for _, line := range cart.Items {
		product, err := tx.FindProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, domain.ErrProductUnavailable)
		}
		if product.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%s: %w", product.Name, domain.ErrInsufficientStock)
		}

		// Current catalog price wins over the price cached in the cart.
		lineSubTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subTotal = subTotal.Add(lineSubTotal)

		items = append(items, domain.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         orderID,
			ProductID:       product.ID,
			Quantity:        line.Quantity,
			PriceAtPurchase: product.Price,
			SubTotal:        lineSubTotal,
		})
	}

	// Half-up to two decimals.
	tax := subTotal.Mul(s.taxRate).Round(2)
	total := subTotal.Add(tax).Add(s.shippingCost)

	order := &domain.Order{
		ID:           orderID,
		OrderNumber:  newOrderNumber(),
		UserID:       userID,
		Status:       domain.StatusPending,
		SubTotal:     subTotal,
		Tax:          tax,
		ShippingCost: s.shippingCost,
		TotalAmount:  total,
		Shipping:     shipping,
		CreatedAt:    time.Now().UTC(),
		Items:        items,
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	// Best-effort: a cart that fails to clear never corrupts the order.
	if err := s.carts.Clear(ctx, userID); err != nil {
		logging.FromCtx(ctx).Warn("cart clear failed after order commit",
			"order_number", order.OrderNumber, "user_id", userID, "err", err)
	}

	logging.FromCtx(ctx).Info("order created, awaiting payment",
		"order_number", order.OrderNumber, "user_id", userID, "total", order.TotalAmount)
	return order, nil
}

// TransitionStatus writes the new status and applies the inventory effect of
// the transition inside one transaction:
//
//	Pending -> PaymentReceived            deduct stock, stamp PaidAt
//	Pending|PaymentReceived -> Cancelled  restore stock
//	-> Shipped / -> Delivered             timestamp only
//
// Any other requested transition is a plain status write. Exactly when the
// new status is PaymentReceived, one order-paid event is published after the
// commit; a publish failure is logged but never rolls the transition back.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID string, newStatus domain.Status) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := tx.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	prev := order.Status

	switch {
	case newStatus == domain.StatusPaymentReceived && prev == domain.StatusPending:
		for _, it := range order.Items {
			if err := tx.AdjustProductStock(ctx, it.ProductID, -it.Quantity); err != nil {
				// Stock was validated at creation but a concurrent order may
				// have consumed it since. Fatal for this transition.
				return err
			}
		}
	case newStatus == domain.StatusCancelled && (prev == domain.StatusPending || prev == domain.StatusPaymentReceived):
		for _, it := range order.Items {
			if err := tx.AdjustProductStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
	}

	now := time.Now().UTC()
	order.Status = newStatus
	switch newStatus {
	case domain.StatusPaymentReceived:
		if order.PaidAt == nil {
			order.PaidAt = &now
		}
	case domain.StatusShipped:
		order.ShippedAt = &now
	case domain.StatusDelivered:
		order.DeliveredAt = &now
	}

	if err := tx.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}

	if newStatus == domain.StatusPaymentReceived {
		s.publishOrderPaid(ctx, order)
	}
	s.auditStatus(ctx, order, newStatus, now)

	logging.FromCtx(ctx).Info("order status changed",
		"order_number", order.OrderNumber, "from", prev, "to", newStatus)
	return nil
}

func (s *OrderService) publishOrderPaid(ctx context.Context, order *domain.Order) {
	email, err := s.users.EmailByID(ctx, order.UserID)
	if err != nil {
		logging.FromCtx(ctx).Error("user email lookup failed",
			"order_number", order.OrderNumber, "user_id", order.UserID, "err", err)
	}
	msg := OrderPaidMsg{
		OrderID:     order.ID,
		UserID:      order.UserID,
		UserEmail:   email,
		TotalAmount: order.TotalAmount,
	}
	// The payment state is already committed; a messaging hiccup must not
	// re-litigate it. Reconciliation reads the audit stream instead.
	if err := s.events.PublishOrderPaid(ctx, msg); err != nil {
		logging.FromCtx(ctx).Error("order-paid publish failed",
			"order_number", order.OrderNumber, "err", err)
	}
}

func (s *OrderService) auditStatus(ctx context.Context, order *domain.Order, status domain.Status, at time.Time) {
	if s.audit == nil {
		return
	}
	err := s.audit.PublishStatusChanged(ctx, OrderStatusChangedMsg{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(status),
		OccurredAt: at,
	})
	if err != nil {
		logging.FromCtx(ctx).Warn("status audit publish failed",
			"order_number", order.OrderNumber, "err", err)
	}
}

// StorePaymentIntent attaches the opaque payment-provider reference to the
// order. Storing the same reference again is a no-op.
func (s *OrderService) StorePaymentIntent(ctx context.Context, orderID, intentRef string) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	order, err := tx.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentIntentRef == intentRef {
		return tx.Commit()
	}
	order.PaymentIntentRef = intentRef
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("store payment intent: %w", err)
	}
	return tx.Commit()
}

func (s *OrderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID, userID)
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.repo.ListByUser(ctx, userID, page, pageSize)
}

// newOrderNumber is date-stamped so numbers sort by day; the repository's
// unique index on order_number backstops the random suffix.
func newOrderNumber() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
