// Package billing implements the payment gateway against Stripe payment
// intents.
package billing

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/softwool/scarf-orders/internal/domain/payment"
)

// StripeGateway adapts the Stripe SDK to the payment.Gateway contract. The
// secret key is injected at construction; nothing here reads the process
// environment.
type StripeGateway struct {
	api *client.API
}

var _ payment.Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway using the given secret key.
func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CreateIntent creates a payment intent for the given amount, attaching the
// buyer email and quantity as metadata.
func (g *StripeGateway) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(p.AmountCents),
		Currency:    stripe.String(p.Currency),
		Description: stripe.String(p.Description),
	}
	params.AddMetadata("email", p.Email)
	params.AddMetadata("quantity", strconv.Itoa(p.Quantity))

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	return &payment.Intent{
		ID:           pi.ID,
		AmountCents:  pi.Amount,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// UpdateIntentAmount amends an existing intent to the new amount.
func (g *StripeGateway) UpdateIntentAmount(ctx context.Context, id string, amountCents int64) error {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
		Amount: stripe.Int64(amountCents),
	}
	if _, err := g.api.PaymentIntents.Update(id, params); err != nil {
		return errors.Wrapf(err, "update payment intent %s", id)
	}
	return nil
}

// GetIntent retrieves the current state of an intent.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieve payment intent %s", id)
	}

	return &payment.Intent{
		ID:           pi.ID,
		AmountCents:  pi.Amount,
		ClientSecret: pi.ClientSecret,
	}, nil
}
