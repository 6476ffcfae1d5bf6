package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/softwool/scarf-orders/internal/domain/payment"
	"github.com/softwool/scarf-orders/internal/domain/pricing"
	"github.com/softwool/scarf-orders/internal/domain/shipping"
)

const (
	// DefaultPostageCode is the delivery service priced into a new Post
	// order before the buyer has made an explicit selection.
	DefaultPostageCode = "AUS_PARCEL_REGULAR_PACKAGE_SMALL"

	// Currency for all payment intents.
	Currency = "aud"

	// maxUpdateAttempts bounds the re-read/retry loop around
	// version-checked updates.
	maxUpdateAttempts = 3
)

// Service orchestrates the order lifecycle. It holds no order state of its
// own: every operation re-reads the current record before mutating, so a
// stale in-memory view can never be written back.
type Service struct {
	orders   Repository
	rates    shipping.RateGateway
	payments payment.Gateway
}

// NewService creates the lifecycle service with its collaborators.
func NewService(orders Repository, rates shipping.RateGateway, payments payment.Gateway) *Service {
	return &Service{
		orders:   orders,
		rates:    rates,
		payments: payments,
	}
}

// CreateOrderRequest holds the input for creating an order. Address is only
// consulted when Method is MethodPost; omitted address fields arrive as zero
// values and are persisted that way.
type CreateOrderRequest struct {
	Name     string
	Email    string
	Quantity int
	Method   FulfillmentMethod
	Address  *Address
}

// CreateOrder validates the request, persists a new order, prices postage for
// Post orders, creates the payment intent, and links it back to the order.
//
// The order record is not rolled back when a later step fails: a Post order
// whose rate lookup or intent creation failed remains persisted without a
// payment reference, and the caller may retry at the operation level.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	o := &Order{
		ID:       uuid.New().String(),
		Quantity: req.Quantity,
		Contact:  Contact{Name: req.Name, Email: req.Email},
		Method:   req.Method,
	}
	if req.Method == MethodPost {
		addr := Address{}
		if req.Address != nil {
			addr = *req.Address
		}
		o.Address = &addr
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	// Price the default delivery service into the initial intent amount.
	var postageCents int64
	if o.Method == MethodPost {
		options, err := s.rates.Quote(ctx, o.Quantity, o.Address.Postcode)
		if err != nil {
			return nil, &RateUnavailableError{Err: err}
		}
		opt, ok := shipping.Find(options, DefaultPostageCode)
		if !ok {
			return nil, &InvalidPostageOptionError{Code: DefaultPostageCode}
		}
		postageCents = pricing.Cents(opt.Price)
	}

	total := pricing.TotalCents(o.Quantity, postageCents)

	intent, err := s.payments.CreateIntent(ctx, payment.CreateIntentParams{
		AmountCents: total,
		Currency:    Currency,
		Description: intentDescription(o),
		Email:       o.Contact.Email,
		Quantity:    o.Quantity,
	})
	if err != nil {
		return nil, &PaymentIntentError{Op: "create", Err: err}
	}

	if err := s.update(ctx, o.ID, o.Version, Patch{PaymentIntentID: &intent.ID}); err != nil {
		return nil, errors.Wrap(err, "link payment intent")
	}

	// Re-read rather than returning the in-memory value: the record may
	// have been touched between the insert and the intent link.
	fresh, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	if fresh.Payment != nil {
		fresh.Payment.ClientSecret = intent.ClientSecret
	}
	return fresh, nil
}

// SelectPostage records the buyer's delivery service choice and brings the
// payment intent amount in line with the new total.
//
// The postage code is validated against a fresh quote before anything is
// written, so an invalid code is never persisted. A failed intent-amount
// update does not fail the operation; it is recorded as PaymentSync=failed
// on the order and can be retried via ReconcilePayment.
func (s *Service) SelectPostage(ctx context.Context, id, code string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Payment == nil {
		return nil, &InvalidStateError{Reason: "order has no payment intent"}
	}
	if o.Address == nil {
		// Unreachable for orders created through this service, but a
		// hand-edited record must not crash the workflow.
		return nil, &InvalidStateError{Reason: "order has no delivery address"}
	}

	options, err := s.rates.Quote(ctx, o.Quantity, o.Address.Postcode)
	if err != nil {
		return nil, &RateUnavailableError{Err: err}
	}
	opt, ok := shipping.Find(options, code)
	if !ok {
		return nil, &InvalidPostageOptionError{Code: code}
	}

	pending := SyncPending
	patch := Patch{
		Postage:     &Postage{Code: opt.Code, Price: opt.Price},
		PaymentSync: &pending,
	}
	if err := s.update(ctx, o.ID, o.Version, patch); err != nil {
		return nil, errors.Wrap(err, "record postage selection")
	}

	total := pricing.TotalCents(o.Quantity, pricing.Cents(opt.Price))
	s.reconcileIntent(ctx, o.ID, o.Payment.IntentID, total)

	fresh, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	return fresh, nil
}

// ReconcilePayment retries the intent-amount update for an order whose
// previous reconciliation is pending or failed. The total is recomputed from
// the postage price captured at selection time, so a retry charges exactly
// what the buyer accepted even if carrier rates have moved since.
func (s *Service) ReconcilePayment(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Payment == nil {
		return nil, &InvalidStateError{Reason: "order has no payment intent"}
	}
	if o.Postage == nil {
		return nil, &InvalidStateError{Reason: "order has no postage selection"}
	}
	if o.PaymentSync == SyncSynced {
		return o, nil
	}

	total := pricing.TotalCents(o.Quantity, pricing.Cents(o.Postage.Price))
	s.reconcileIntent(ctx, o.ID, o.Payment.IntentID, total)

	fresh, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	return fresh, nil
}

// reconcileIntent pushes the new total to the payment gateway and records the
// outcome on the order. Failures are logged and persisted as SyncFailed, not
// returned: the order mutation already succeeded and stays visible.
func (s *Service) reconcileIntent(ctx context.Context, id, intentID string, totalCents int64) {
	lg := zctx.From(ctx)

	status := SyncSynced
	if err := s.payments.UpdateIntentAmount(ctx, intentID, totalCents); err != nil {
		lg.Warn("Payment intent amount update failed",
			zap.String("order_id", id),
			zap.String("intent_id", intentID),
			zap.Int64("amount_cents", totalCents),
			zap.Error(err))
		status = SyncFailed
	}

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		lg.Error("Reload order after reconciliation", zap.String("order_id", id), zap.Error(err))
		return
	}
	if err := s.update(ctx, id, o.Version, Patch{PaymentSync: &status}); err != nil {
		lg.Error("Record reconciliation status",
			zap.String("order_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// update applies a version-checked patch, re-reading and retrying a bounded
// number of times when a concurrent writer got there first.
func (s *Service) update(ctx context.Context, id string, version int64, patch Patch) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.orders.Update(ctx, id, version, patch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}

		fresh, getErr := s.orders.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		version = fresh.Version
	}
	return ErrVersionConflict
}

func intentDescription(o *Order) string {
	method := "Pickup"
	if o.Method == MethodPost {
		method = "Postage"
	}
	return fmt.Sprintf("%s: Scarves x%d for %s", o.Contact.Name, o.Quantity, method)
}
