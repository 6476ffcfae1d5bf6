package graphql

import (
	"github.com/go-faster/errors"

	"github.com/softwool/scarf-orders/internal/domain/order"
)

// Error codes surfaced to API clients in the "type" error extension. Clients
// branch on these rather than parsing messages.
const (
	codeInvalidQuantity         = "INVALID_QUANTITY"
	codeInvalidPostageOption    = "INVALID_POSTAGE_OPTION"
	codeShippingRateUnavailable = "SHIPPING_RATE_UNAVAILABLE"
	codeNoAddress               = "NO_ADDRESS"
	codeNotFound                = "NOT_FOUND"
	codeInvalidID               = "INVALID_ID"
	codeInvalidState            = "INVALID_STATE"
	codePaymentIntentFailed     = "PAYMENT_INTENT_FAILED"
	codeInternalDecode          = "INTERNAL_DECODE_ERROR"
	codeVersionConflict         = "VERSION_CONFLICT"
)

// requestError carries a client-facing message plus a machine-readable code.
// It satisfies the ExtendedError interface the GraphQL executor checks when
// formatting resolver errors.
type requestError struct {
	message string
	code    string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Extensions() map[string]interface{} {
	return map[string]interface{}{"type": e.code}
}

// mapError translates domain errors into coded request errors. Anything
// unrecognized passes through untouched and surfaces as an internal error.
func mapError(err error) error {
	switch {
	case errors.Is(err, order.ErrInvalidQuantity):
		return &requestError{message: "Quantity must be greater than 0", code: codeInvalidQuantity}
	case errors.Is(err, order.ErrNotFound):
		return &requestError{message: "The requested order was not found", code: codeNotFound}
	case errors.Is(err, order.ErrInvalidID):
		return &requestError{message: "Order id is not valid", code: codeInvalidID}
	case errors.Is(err, order.ErrNoAddress):
		return &requestError{
			message: "This order does not have an address defined. This is likely because the Pickup option was selected",
			code:    codeNoAddress,
		}
	case errors.Is(err, order.ErrVersionConflict):
		return &requestError{message: "The order was modified concurrently, retry the operation", code: codeVersionConflict}
	}

	var optErr *order.InvalidPostageOptionError
	if errors.As(err, &optErr) {
		return &requestError{message: optErr.Error(), code: codeInvalidPostageOption}
	}

	var stateErr *order.InvalidStateError
	if errors.As(err, &stateErr) {
		return &requestError{message: stateErr.Error(), code: codeInvalidState}
	}

	var rateErr *order.RateUnavailableError
	if errors.As(err, &rateErr) {
		return &requestError{message: "Shipping rates are temporarily unavailable, retry later", code: codeShippingRateUnavailable}
	}

	var piErr *order.PaymentIntentError
	if errors.As(err, &piErr) {
		return &requestError{message: "Payment processing failed, retry later", code: codePaymentIntentFailed}
	}

	var decErr *order.DecodeError
	if errors.As(err, &decErr) {
		return &requestError{message: "Internal error decoding stored order", code: codeInternalDecode}
	}

	return err
}
