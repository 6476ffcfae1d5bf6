package graphql

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softwool/scarf-orders/internal/domain/order"
)

func TestMapError_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid quantity", order.ErrInvalidQuantity, codeInvalidQuantity},
		{"not found", order.ErrNotFound, codeNotFound},
		{"invalid id", order.ErrInvalidID, codeInvalidID},
		{"no address", order.ErrNoAddress, codeNoAddress},
		{"version conflict", order.ErrVersionConflict, codeVersionConflict},
		{"wrapped version conflict", errors.Wrap(order.ErrVersionConflict, "link payment intent"), codeVersionConflict},
		{"invalid postage option", &order.InvalidPostageOptionError{Code: "NOPE"}, codeInvalidPostageOption},
		{"invalid state", &order.InvalidStateError{Reason: "no payment intent"}, codeInvalidState},
		{"rate unavailable", &order.RateUnavailableError{Err: errors.New("carrier down")}, codeShippingRateUnavailable},
		{"payment intent failed", &order.PaymentIntentError{Op: "create", Err: errors.New("declined")}, codePaymentIntentFailed},
		{"decode failure", &order.DecodeError{ID: "abc", Err: fmt.Errorf("unknown fulfillment method %q", "TELEPORT")}, codeInternalDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err)

			var re *requestError
			require.ErrorAs(t, mapped, &re)
			assert.Equal(t, tt.code, re.Extensions()["type"])
			assert.NotEmpty(t, re.Error())
		})
	}
}

func TestMapError_PassesUnknownThrough(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, err, mapError(err))
}
