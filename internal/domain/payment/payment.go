// Package payment defines the payment-processor contract the order lifecycle
// depends on. An Intent mirrors the processor's transaction: the processor is
// the authority on the amount, never the order store.
package payment

import "context"

// Intent is an external payment transaction keyed by an opaque id.
type Intent struct {
	ID          string
	AmountCents int64

	// ClientSecret is only guaranteed to be present immediately after
	// creation or on a live retrieval; it is never persisted.
	ClientSecret string
}

// CreateIntentParams describes a new payment transaction.
type CreateIntentParams struct {
	AmountCents int64
	Currency    string
	Description string

	// Metadata attached to the transaction for reconciliation.
	Email    string
	Quantity int
}

// Gateway creates, amends, and retrieves payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	UpdateIntentAmount(ctx context.Context, id string, amountCents int64) error
	GetIntent(ctx context.Context, id string) (*Intent, error)
}
