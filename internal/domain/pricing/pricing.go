// Package pricing computes order totals. All arithmetic is done in integer
// cents so that repeated additions never accumulate floating-point drift.
package pricing

import "github.com/shopspring/decimal"

// UnitPriceCents is the fixed price of a single scarf, in AUD cents.
const UnitPriceCents int64 = 1500

var hundred = decimal.NewFromInt(100)

// TotalCents returns the full order price in cents: unit price times quantity
// plus the postage surcharge. Pass 0 for postageCents on pickup orders.
func TotalCents(quantity int, postageCents int64) int64 {
	return UnitPriceCents*int64(quantity) + postageCents
}

// Cents converts a decimal currency amount (dollars) to integer cents.
//
// Fractional cents are truncated toward zero, never rounded. This is the
// documented charging rule: a quoted rate of 12.559 charges 1255 cents.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).IntPart()
}
