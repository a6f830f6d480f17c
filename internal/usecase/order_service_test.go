package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logging.WithCtx(context.Background(), quiet)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct(id, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:            id,
		Name:          "product " + id,
		Price:         dec(price),
		StockQuantity: stock,
		IsActive:      true,
	}
}

func cartWith(userID string, items ...domain.CartItem) *domain.Cart {
	c := domain.NewCart(userID)
	for _, it := range items {
		if err := c.Add(it); err != nil {
			panic(err)
		}
	}
	return c
}

type fixture struct {
	store *memStore
	carts *memCarts
	users *mockUsers
	pub   *mockPublisher
	audit *mockAuditor
	svc   *OrderService
}

func newFixture(products ...*domain.Product) *fixture {
	f := &fixture{
		store: newMemStore(products...),
		carts: newMemCarts(),
		users: &mockUsers{email: "buyer@example.com"},
		pub:   &mockPublisher{},
		audit: &mockAuditor{},
	}
	f.svc = NewOrderService(f.store, f.carts, f.users, f.pub, f.audit, dec("0.10"), dec("10.00"))
	return f
}

var shipTo = domain.ShippingDetails{
	Address:    "1 Main St",
	City:       "Springfield",
	PostalCode: "12345",
	Country:    "US",
}

func TestCreateOrder_EmptyCartCreatesNothing(t *testing.T) {
	f := newFixture()

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.Nil(t, order)
	assert.Empty(t, f.store.orders)
}

func TestCreateOrder_TotalsUseCurrentCatalogPrices(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 5))
	// Stale cart price; the catalog price must win.
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("5.00"), Quantity: 2})

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.NoError(t, err)
	assert.True(t, dec("39.98").Equal(order.SubTotal), "subtotal %s", order.SubTotal)
	assert.True(t, dec("4.00").Equal(order.Tax), "tax %s", order.Tax)
	assert.True(t, dec("10.00").Equal(order.ShippingCost))
	assert.True(t, dec("53.98").Equal(order.TotalAmount), "total %s", order.TotalAmount)

	require.Len(t, order.Items, 1)
	assert.True(t, dec("19.99").Equal(order.Items[0].PriceAtPurchase))
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`), order.OrderNumber)

	// Persisted, and the cart is gone.
	assert.NotNil(t, f.store.order(order.ID))
	assert.Equal(t, []string{"u1"}, f.carts.cleared)
}

func TestCreateOrder_ItemsKeepCartOrder(t *testing.T) {
	f := newFixture(
		testProduct("p1", "19.99", 5),
		testProduct("p2", "3.00", 5),
		testProduct("p3", "7.50", 5),
	)
	f.carts.carts["u1"] = cartWith("u1",
		domain.CartItem{ProductID: "p2", UnitPrice: dec("3.00"), Quantity: 1},
		domain.CartItem{ProductID: "p3", UnitPrice: dec("7.50"), Quantity: 1},
		domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1},
	)

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.NoError(t, err)
	require.Len(t, order.Items, 3)
	assert.Equal(t, "p2", order.Items[0].ProductID)
	assert.Equal(t, "p3", order.Items[1].ProductID)
	assert.Equal(t, "p1", order.Items[2].ProductID)
}

func TestCreateOrder_StockOnlyValidatedNotDeducted(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 5))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 3})

	_, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.NoError(t, err)
	assert.Equal(t, 5, f.store.stock("p1"))
}

func TestCreateOrder_InactiveProductRejectsWholeOrder(t *testing.T) {
	inactive := testProduct("p2", "3.00", 10)
	inactive.IsActive = false
	f := newFixture(testProduct("p1", "19.99", 5), inactive)
	f.carts.carts["u1"] = cartWith("u1",
		domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1},
		domain.CartItem{ProductID: "p2", UnitPrice: dec("3.00"), Quantity: 1},
	)

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Nil(t, order)
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.carts.cleared, "cart survives a failed checkout")
}

func TestCreateOrder_UnknownProductRejected(t *testing.T) {
	f := newFixture()
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "ghost", UnitPrice: dec("1.00"), Quantity: 1})

	_, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCreateOrder_InsufficientStockRejected(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 1))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, order)
	assert.Empty(t, f.store.orders)
}

func TestCreateOrder_CartClearFailureKeepsOrder(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 5))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1})
	f.carts.clearErr = errors.New("redis down")

	order, err := f.svc.CreateOrder(testCtx(), "u1", shipTo)

	require.NoError(t, err)
	assert.NotNil(t, f.store.order(order.ID))
}

func paidOrder(t *testing.T, f *fixture, userID string) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(testCtx(), userID, shipTo)
	require.NoError(t, err)
	return order
}

func TestTransitionStatus_PaymentReceivedDeductsExactlyOnce(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))
	assert.Equal(t, 8, f.store.stock("p1"))
	assert.NotNil(t, f.store.order(order.ID).PaidAt)

	// A second delivery of the same confirmation must not deduct again.
	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))
	assert.Equal(t, 8, f.store.stock("p1"))
}

func TestTransitionStatus_PublishesOneOrderPaidEvent(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))

	require.Len(t, f.pub.published, 1)
	msg := f.pub.published[0]
	assert.Equal(t, order.ID, msg.OrderID)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "buyer@example.com", msg.UserEmail)
	assert.True(t, order.TotalAmount.Equal(msg.TotalAmount))

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, string(domain.StatusPaymentReceived), f.audit.events[0].Status)
}

func TestTransitionStatus_EmailLookupFailureStillPublishes(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1})
	f.users.err = errors.New("directory unavailable")
	f.users.email = ""
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))

	require.Len(t, f.pub.published, 1)
	assert.Empty(t, f.pub.published[0].UserEmail)
}

func TestTransitionStatus_PublishFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	f.pub.err = errors.New("broker unreachable")
	order := paidOrder(t, f, "u1")

	err := f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentReceived, f.store.order(order.ID).Status)
	assert.Equal(t, 8, f.store.stock("p1"))
}

func TestTransitionStatus_CancelAfterPaymentRestoresStock(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 3})
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))
	require.Equal(t, 7, f.store.stock("p1"))

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusCancelled))
	assert.Equal(t, 10, f.store.stock("p1"))
}

func TestTransitionStatus_CancelWhilePendingLeavesStockAbove(t *testing.T) {
	// Cancelling an unpaid order restores quantities that were never
	// deducted; the conditional stock update is the real-world guard, the
	// mock mirrors it by allowing the increment.
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusCancelled))

	assert.Equal(t, domain.StatusCancelled, f.store.order(order.ID).Status)
	assert.Equal(t, 12, f.store.stock("p1"))
}

func TestTransitionStatus_ConcurrentPaymentsCannotOversell(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 2))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	first := paidOrder(t, f, "u1")
	f.carts.carts["u2"] = cartWith("u2", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2})
	second := paidOrder(t, f, "u2")

	require.NoError(t, f.svc.TransitionStatus(testCtx(), first.ID, domain.StatusPaymentReceived))
	err := f.svc.TransitionStatus(testCtx(), second.ID, domain.StatusPaymentReceived)

	require.ErrorIs(t, err, domain.ErrStockConsistency)
	assert.Equal(t, 0, f.store.stock("p1"))
	assert.Equal(t, domain.StatusPending, f.store.order(second.ID).Status)
	assert.Empty(t, f.store.order(second.ID).PaidAt)
}

func TestTransitionStatus_ShippedStampsTimestampOnly(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1})
	order := paidOrder(t, f, "u1")
	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusPaymentReceived))

	require.NoError(t, f.svc.TransitionStatus(testCtx(), order.ID, domain.StatusShipped))

	got := f.store.order(order.ID)
	assert.Equal(t, domain.StatusShipped, got.Status)
	assert.NotNil(t, got.ShippedAt)
	assert.Equal(t, 9, f.store.stock("p1"))
	// Shipping never emits an order-paid event.
	assert.Len(t, f.pub.published, 1)
}

func TestTransitionStatus_UnknownOrder(t *testing.T) {
	f := newFixture()

	err := f.svc.TransitionStatus(testCtx(), "missing", domain.StatusPaymentReceived)

	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Empty(t, f.pub.published)
}

func TestStorePaymentIntent_Idempotent(t *testing.T) {
	f := newFixture(testProduct("p1", "19.99", 10))
	f.carts.carts["u1"] = cartWith("u1", domain.CartItem{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 1})
	order := paidOrder(t, f, "u1")

	require.NoError(t, f.svc.StorePaymentIntent(testCtx(), order.ID, "pi_123"))
	require.NoError(t, f.svc.StorePaymentIntent(testCtx(), order.ID, "pi_123"))

	assert.Equal(t, "pi_123", f.store.order(order.ID).PaymentIntentRef)
}

func TestOrderPaidMsg_WireFieldNames(t *testing.T) {
	raw, err := json.Marshal(OrderPaidMsg{
		OrderID:     "o1",
		UserID:      "u1",
		UserEmail:   "buyer@example.com",
		TotalAmount: dec("53.98"),
	})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"orderId", "userId", "userEmail", "totalAmount"} {
		assert.Contains(t, fields, key)
	}
}
