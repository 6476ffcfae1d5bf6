// Package shipping defines the delivery-rate contract the order lifecycle
// depends on. Quotes are ephemeral: rates change between calls and are never
// cached or persisted as a set.
package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// DeliveryOption is a single named delivery service quoted for a parcel.
type DeliveryOption struct {
	Name  string
	Code  string
	Price decimal.Decimal
}

// RateGateway quotes delivery options for an order's quantity and destination
// postcode. Implementations translate carrier failures into plain errors; the
// caller decides how to classify them.
type RateGateway interface {
	Quote(ctx context.Context, quantity, postcode int) ([]DeliveryOption, error)
}

// Find returns the option matching the given service code, if quoted.
func Find(options []DeliveryOption, code string) (DeliveryOption, bool) {
	for _, opt := range options {
		if opt.Code == code {
			return opt, true
		}
	}
	return DeliveryOption{}, false
}
