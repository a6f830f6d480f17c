package payment

import (
	"context"
	"strings"

	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FakeGateway stands in for Stripe in local and test environments. Every
// intent succeeds unless Succeeds is false.
type FakeGateway struct {
	Succeeds bool
}

func NewFakeGateway(succeeds bool) *FakeGateway { return &FakeGateway{Succeeds: succeeds} }

var _ usecase.PaymentGateway = (*FakeGateway)(nil)

func (g *FakeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	ref := "pi_fake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	logging.FromCtx(ctx).Info("fake payment intent created",
		"intent", ref, "amount", amount, "currency", currency)
	return ref, nil
}

func (g *FakeGateway) Confirm(ctx context.Context, intentRef string) (bool, error) {
	logging.FromCtx(ctx).Info("fake payment confirm",
		"intent", intentRef, "result", g.Succeeds)
	return g.Succeeds, nil
}
