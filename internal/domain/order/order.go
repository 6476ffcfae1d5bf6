// Package order holds the order data model and the lifecycle service that
// moves an order from creation through postage selection to payment-amount
// reconciliation.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentMethod is how the buyer receives their scarves.
type FulfillmentMethod string

const (
	MethodPickup FulfillmentMethod = "PICKUP"
	MethodPost   FulfillmentMethod = "POST"
)

// SyncStatus tracks whether the payment intent amount matches the order's
// recorded postage selection.
type SyncStatus string

const (
	// SyncPending is set just before the intent amount update is attempted.
	SyncPending SyncStatus = "pending"
	// SyncSynced means the intent amount reflects the selected postage.
	SyncSynced SyncStatus = "synced"
	// SyncFailed means the intent amount update failed and needs a retry.
	SyncFailed SyncStatus = "failed"
)

// Contact holds the buyer's details, set at creation and immutable after.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Address is a delivery address. It is present exactly when the order was
// created with the Post method. Optional fields the buyer omitted are stored
// as empty strings (postcode zero), not dropped.
type Address struct {
	Apartment string `json:"apartment"`
	Street    string `json:"street"`
	Town      string `json:"town"`
	State     string `json:"state"`
	Postcode  int    `json:"post_code"`
}

// Postage records the delivery service the buyer selected, together with the
// price quoted at selection time. The quoted price exists for auditing and
// for retrying a failed intent-amount update; the payment gateway stays the
// authority on what will actually be charged.
type Postage struct {
	Code  string
	Price decimal.Decimal
}

// PaymentRef links an order to its external payment intent.
type PaymentRef struct {
	IntentID string

	// ClientSecret is populated only on the order returned right after
	// intent creation. It is never persisted; later reads proxy it live
	// from the payment gateway.
	ClientSecret string
}

// Order is the central entity. The store owns its state: the lifecycle
// service re-reads before every mutation and never caches an Order across
// calls.
type Order struct {
	ID       string
	Quantity int
	Contact  Contact
	Method   FulfillmentMethod
	Address  *Address
	Postage  *Postage
	Payment  *PaymentRef

	// PaymentSync is empty until a postage selection first touches the
	// intent amount.
	PaymentSync SyncStatus

	// Version increments on every update; updates carry the version they
	// read so concurrent writers cannot silently overwrite each other.
	Version   int64
	CreatedAt time.Time
}

// Patch is a partial update to an order. Nil fields are left untouched.
type Patch struct {
	Postage         *Postage
	PaymentIntentID *string
	PaymentSync     *SyncStatus
}

// Repository persists orders. Get and Update return ErrNotFound for unknown
// ids; Update returns ErrVersionConflict when the stored version no longer
// matches the one the caller read.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, id string, version int64, patch Patch) error
}
