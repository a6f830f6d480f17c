package payment

import (
	"context"
	"fmt"

	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
)

// StripeGateway is the real payment provider. The rest of the system treats
// it as an opaque capability: create an intent, ask whether it succeeded.
type StripeGateway struct{}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

var _ usecase.PaymentGateway = (*StripeGateway)(nil)

func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		// Stripe wants the smallest currency unit.
		Amount:   stripe.Int64(amount.Shift(2).IntPart()),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return pi.ID, nil
}

func (g *StripeGateway) Confirm(ctx context.Context, intentRef string) (bool, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentRef, params)
	if err != nil {
		return false, fmt.Errorf("fetch payment intent %s: %w", intentRef, err)
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}
