package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/softwool/scarf-orders/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, quantity, contact_name, contact_email, method, address)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderColumns = `id, quantity, contact_name, contact_email, method, address,
		postage_code, postage_price, payment_intent_id, payment_sync, version, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at`

	getVersionSQL = `SELECT version FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Updates
// are version-checked: the row is only touched when the stored version still
// matches the one the caller read, and every successful update increments it.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a new order. The address, when present, is serialized to
// JSON for storage in the JSONB column. On success the order's Version is set
// to the stored initial version.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	var addressJSON []byte
	if o.Address != nil {
		var err error
		addressJSON, err = json.Marshal(o.Address)
		if err != nil {
			return fmt.Errorf("marshaling address: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.Quantity, o.Contact.Name, o.Contact.Email, string(o.Method), addressJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	o.Version = 1
	return nil
}

// Get returns a single order by id, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// List returns all orders in creation order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return out, nil
}

// Update applies a partial update guarded by the version the caller read.
// Returns order.ErrNotFound for unknown ids and order.ErrVersionConflict when
// another writer has bumped the version in the meantime.
func (r *OrderRepository) Update(ctx context.Context, id string, version int64, patch order.Patch) error {
	sets := []string{"version = version + 1"}
	args := []any{id, version}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Postage != nil {
		sets = append(sets,
			"postage_code = "+arg(patch.Postage.Code),
			"postage_price = "+arg(patch.Postage.Price),
		)
	}
	if patch.PaymentIntentID != nil {
		sets = append(sets, "payment_intent_id = "+arg(*patch.PaymentIntentID))
	}
	if patch.PaymentSync != nil {
		sets = append(sets, "payment_sync = "+arg(string(*patch.PaymentSync)))
	}

	sql := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE id = $1 AND version = $2"

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the order is gone or the version moved.
	var current int64
	err = r.pool.QueryRow(ctx, getVersionSQL, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return order.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating order %q: %w", id, err)
	}
	return order.ErrVersionConflict
}

// scanOrder maps a row onto the data model. Decode failures surface as
// order.DecodeError instead of silently yielding zero-valued fields.
func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		method      string
		addressJSON []byte
		postageCode *string
		postagePx   *decimal.Decimal
		intentID    *string
		paymentSync *string
	)

	err := row.Scan(
		&o.ID, &o.Quantity, &o.Contact.Name, &o.Contact.Email, &method, &addressJSON,
		&postageCode, &postagePx, &intentID, &paymentSync, &o.Version, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	switch order.FulfillmentMethod(method) {
	case order.MethodPickup, order.MethodPost:
		o.Method = order.FulfillmentMethod(method)
	default:
		return order.Order{}, &order.DecodeError{ID: o.ID, Err: fmt.Errorf("unknown fulfillment method %q", method)}
	}

	if addressJSON != nil {
		var addr order.Address
		if err := json.Unmarshal(addressJSON, &addr); err != nil {
			return order.Order{}, &order.DecodeError{ID: o.ID, Err: err}
		}
		o.Address = &addr
	}

	if postageCode != nil {
		p := order.Postage{Code: *postageCode}
		if postagePx != nil {
			p.Price = *postagePx
		}
		o.Postage = &p
	}

	if intentID != nil {
		o.Payment = &order.PaymentRef{IntentID: *intentID}
	}

	if paymentSync != nil {
		switch s := order.SyncStatus(*paymentSync); s {
		case order.SyncPending, order.SyncSynced, order.SyncFailed:
			o.PaymentSync = s
		default:
			return order.Order{}, &order.DecodeError{ID: o.ID, Err: fmt.Errorf("unknown payment sync status %q", *paymentSync)}
		}
	}

	return o, nil
}
