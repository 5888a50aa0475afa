package payment

import (
	"context"
	"errors"
	"fmt"

	"ms-canteen/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var (
	ErrClientInitFailed = errors.New("failed to initialize Stripe client")
	ErrNotConfigured    = errors.New("payment gateway not configured")
)

// DisabledGateway stands in when no Stripe key is configured. Cash orders
// keep working; online checkouts fail with a clear error.
type DisabledGateway struct{}

func (DisabledGateway) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (string, error) {
	return "", ErrNotConfigured
}

// StripeGateway creates payment intents for online orders. Confirmation
// arrives later via the payment-success callback, not here.
type StripeGateway struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeGateway(secretKey string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "Stripe secret key not configured")
		return nil, ErrClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{client: sc, log: log}, nil
}

// CreatePaymentIntent registers the charge with Stripe and returns the
// intent ID. The amount is in the currency's smallest unit.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (string, error) {
	if amountMinorUnits <= 0 {
		return "", fmt.Errorf("invalid payment amount: %d", amountMinorUnits)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinorUnits),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent: %v", err))
		return "", err
	}

	g.log.Info("STRIPE", fmt.Sprintf("Payment intent created: %s (%d %s)", pi.ID, amountMinorUnits, currency))
	return pi.ID, nil
}
