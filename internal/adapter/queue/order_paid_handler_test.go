package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	failures int // first N calls fail
	calls    int
	lastTo   string
}

func (f *fakeSender) SendOrderConfirmation(_ context.Context, email, _ string, _ decimal.Decimal) error {
	f.calls++
	f.lastTo = email
	if f.calls <= f.failures {
		return errors.New("smtp: connection refused")
	}
	return nil
}

type fakeDedup struct {
	sent      map[string]bool
	lookupErr error
	marks     int
}

func (f *fakeDedup) AlreadySent(_ context.Context, orderID string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.sent[orderID], nil
}

func (f *fakeDedup) MarkSent(_ context.Context, orderID string) error {
	if f.sent == nil {
		f.sent = map[string]bool{}
	}
	f.sent[orderID] = true
	f.marks++
	return nil
}

func paidMsg() usecase.OrderPaidMsg {
	total, _ := decimal.NewFromString("53.98")
	return usecase.OrderPaidMsg{
		OrderID:     "o1",
		UserID:      "u1",
		UserEmail:   "buyer@example.com",
		TotalAmount: total,
	}
}

func TestHandlePaid_SendsAndMarks(t *testing.T) {
	sender := &fakeSender{}
	dedup := &fakeDedup{}
	h := NewOrderPaidHandler(sender, dedup)

	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "buyer@example.com", sender.lastTo)
	assert.True(t, dedup.sent["o1"])
}

func TestHandlePaid_SendFailurePropagatesAndStaysRetryable(t *testing.T) {
	sender := &fakeSender{failures: 1}
	dedup := &fakeDedup{}
	h := NewOrderPaidHandler(sender, dedup)

	// First delivery fails; the error surfaces so the router requeues.
	require.Error(t, h.HandlePaid(context.Background(), paidMsg()))
	assert.Zero(t, dedup.marks, "a failed send must not be marked as done")

	// The broker redelivers; this time the send goes through.
	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))
	assert.Equal(t, 2, sender.calls)
	assert.True(t, dedup.sent["o1"])
}

func TestHandlePaid_DuplicateDeliverySkipsSend(t *testing.T) {
	sender := &fakeSender{}
	dedup := &fakeDedup{sent: map[string]bool{"o1": true}}
	h := NewOrderPaidHandler(sender, dedup)

	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))

	assert.Zero(t, sender.calls)
}

func TestHandlePaid_DedupLookupFailureStillSends(t *testing.T) {
	sender := &fakeSender{}
	dedup := &fakeDedup{lookupErr: errors.New("redis down")}
	h := NewOrderPaidHandler(sender, dedup)

	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))

	assert.Equal(t, 1, sender.calls)
}

func TestHandlePaid_NoDedupConfigured(t *testing.T) {
	sender := &fakeSender{}
	h := NewOrderPaidHandler(sender, nil)

	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))
	require.NoError(t, h.HandlePaid(context.Background(), paidMsg()))

	assert.Equal(t, 2, sender.calls, "without dedup every delivery sends")
}

func TestJSONHandler_DecodesAndDispatches(t *testing.T) {
	var got usecase.OrderPaidMsg
	h := JSONHandler[usecase.OrderPaidMsg]{
		HandleFunc: func(_ context.Context, msg usecase.OrderPaidMsg) error {
			got = msg
			return nil
		},
	}

	body := []byte(`{"orderId":"o1","userId":"u1","userEmail":"buyer@example.com","totalAmount":"53.98"}`)
	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{Body: body}))

	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "buyer@example.com", got.UserEmail)
}

func TestJSONHandler_MalformedPayloadIsAnError(t *testing.T) {
	h := JSONHandler[usecase.OrderPaidMsg]{
		HandleFunc: func(context.Context, usecase.OrderPaidMsg) error {
			t.Fatal("handler must not run on a malformed payload")
			return nil
		},
	}

	err := h.Handle(context.Background(), amqp.Delivery{Body: []byte("{not json")})
	assert.Error(t, err)
}

func TestAttemptCount(t *testing.T) {
	// A first delivery carries no count; republished retries do. A plain
	// broker requeue also carries none, which resets nothing because capped
	// retries always go through republish.
	assert.Zero(t, attemptCount(amqp.Delivery{}))
	assert.Zero(t, attemptCount(amqp.Delivery{Headers: amqp.Table{}}))

	d := amqp.Delivery{Headers: amqp.Table{attemptsHeader: int32(2)}}
	assert.Equal(t, 2, attemptCount(d))

	// Some broker versions hand the header back widened.
	d = amqp.Delivery{Headers: amqp.Table{attemptsHeader: int64(5)}}
	assert.Equal(t, 5, attemptCount(d))
}

func TestRouterAttemptCap(t *testing.T) {
	capped := NewRouter(nil, WithMaxAttempts(3))
	assert.False(t, capped.exhausted(1))
	assert.False(t, capped.exhausted(2))
	assert.True(t, capped.exhausted(3), "the third failure parks the message")

	forever := NewRouter(nil)
	assert.False(t, forever.exhausted(1000000))
}
