package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order validation and persistence.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNotFound        = errors.New("order not found")
	ErrInvalidID       = errors.New("order id is not valid")
	ErrNoAddress       = errors.New("order has no delivery address")
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// InvalidPostageOptionError indicates the requested (or default) delivery
// service code was not among the freshly quoted options.
type InvalidPostageOptionError struct {
	Code string
}

func (e *InvalidPostageOptionError) Error() string {
	return fmt.Sprintf("postage option %q is not available for this order", e.Code)
}

// InvalidStateError indicates an operation was attempted on an order that is
// missing a prerequisite (payment reference, address) instead of panicking on
// the broken invariant.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid order state: " + e.Reason
}

// RateUnavailableError indicates the shipping rate lookup failed. This is a
// transient gateway failure, distinct from any input validation error.
type RateUnavailableError struct {
	Err error
}

func (e *RateUnavailableError) Error() string {
	return "shipping rates unavailable: " + e.Err.Error()
}

func (e *RateUnavailableError) Unwrap() error { return e.Err }

// PaymentIntentError indicates the payment gateway rejected an intent
// creation or retrieval.
type PaymentIntentError struct {
	Op  string
	Err error
}

func (e *PaymentIntentError) Error() string {
	return fmt.Sprintf("%s payment intent: %s", e.Op, e.Err.Error())
}

func (e *PaymentIntentError) Unwrap() error { return e.Err }

// DecodeError indicates a stored order record could not be read back into the
// data model. Surfaced to the caller instead of substituting zero values, so
// corrupt rows are distinguishable from legitimately empty fields.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode order %q: %s", e.ID, e.Err.Error())
}

func (e *DecodeError) Unwrap() error { return e.Err }
