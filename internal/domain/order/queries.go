package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/softwool/scarf-orders/internal/domain/payment"
	"github.com/softwool/scarf-orders/internal/domain/pricing"
	"github.com/softwool/scarf-orders/internal/domain/shipping"
)

// Orders returns every stored order.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// Order returns a single order by id.
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// CalculatePostage quotes the delivery options currently available for an
// order. Quotes are live: nothing is cached, and the same call may return
// different prices over time.
func (s *Service) CalculatePostage(ctx context.Context, id string) ([]shipping.DeliveryOption, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Address == nil {
		return nil, ErrNoAddress
	}

	options, err := s.rates.Quote(ctx, o.Quantity, o.Address.Postcode)
	if err != nil {
		return nil, &RateUnavailableError{Err: err}
	}
	return options, nil
}

// BasePriceCents returns the order price excluding postage. This is a
// display-only figure recomputed from the quantity; the payment gateway holds
// the authoritative amount.
func (s *Service) BasePriceCents(ctx context.Context, id string) (int64, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return pricing.TotalCents(o.Quantity, 0), nil
}

// PaymentAmountCents returns the authoritative order total, proxied live from
// the payment gateway.
func (s *Service) PaymentAmountCents(ctx context.Context, id string) (int64, error) {
	intent, err := s.liveIntent(ctx, id)
	if err != nil {
		return 0, err
	}
	return intent.AmountCents, nil
}

// PaymentClientSecret returns the current client secret for the order's
// payment intent, proxied live from the payment gateway.
func (s *Service) PaymentClientSecret(ctx context.Context, id string) (string, error) {
	intent, err := s.liveIntent(ctx, id)
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

func (s *Service) liveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Payment == nil {
		return nil, &InvalidStateError{Reason: "order has no payment intent"}
	}

	intent, err := s.payments.GetIntent(ctx, o.Payment.IntentID)
	if err != nil {
		return nil, &PaymentIntentError{Op: "retrieve", Err: err}
	}
	if intent == nil {
		return nil, errors.New("payment gateway returned no intent")
	}
	return intent, nil
}
