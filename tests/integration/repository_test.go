//go:build integration

package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/softwool/scarf-orders/internal/domain/order"
	"github.com/softwool/scarf-orders/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("scarf"),
		tcpostgres.WithUsername("scarf"),
		tcpostgres.WithPassword("scarf"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = repository.NewPool(ctx, connStr)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func newPostOrder() *order.Order {
	return &order.Order{
		ID:       uuid.New().String(),
		Quantity: 3,
		Contact:  order.Contact{Name: "Ann", Email: "ann@example.com"},
		Method:   order.MethodPost,
		Address: &order.Address{
			Street:   "1 Wool St",
			Town:     "Hornsby",
			State:    "NSW",
			Postcode: 2077,
		},
	}
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newPostOrder()
	require.NoError(t, repo.Insert(ctx, o))
	assert.Equal(t, int64(1), o.Version)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, order.MethodPost, got.Method)
	require.NotNil(t, got.Address)
	assert.Equal(t, "1 Wool St", got.Address.Street)
	assert.Equal(t, 2077, got.Address.Postcode)
	assert.Nil(t, got.Postage)
	assert.Nil(t, got.Payment)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestOrderRepository_PickupHasNoAddress(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := &order.Order{
		ID:       uuid.New().String(),
		Quantity: 1,
		Contact:  order.Contact{Name: "Bo", Email: "bo@example.com"},
		Method:   order.MethodPickup,
	}
	require.NoError(t, repo.Insert(ctx, o))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Address)
}

func TestOrderRepository_GetUnknown(t *testing.T) {
	repo := repository.NewOrderRepository(pool)

	_, err := repo.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_UpdatePostageAndPayment(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newPostOrder()
	require.NoError(t, repo.Insert(ctx, o))

	intentID := "pi_test_123"
	sync := order.SyncSynced
	price := decimal.RequireFromString("10.60")
	err := repo.Update(ctx, o.ID, 1, order.Patch{
		Postage:         &order.Postage{Code: "AUS_PARCEL_REGULAR_PACKAGE_SMALL", Price: price},
		PaymentIntentID: &intentID,
		PaymentSync:     &sync,
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Postage)
	assert.Equal(t, "AUS_PARCEL_REGULAR_PACKAGE_SMALL", got.Postage.Code)
	// NUMERIC round-trips the quoted price exactly.
	assert.True(t, price.Equal(got.Postage.Price), "got %s", got.Postage.Price)
	require.NotNil(t, got.Payment)
	assert.Equal(t, intentID, got.Payment.IntentID)
	assert.Empty(t, got.Payment.ClientSecret)
	assert.Equal(t, order.SyncSynced, got.PaymentSync)
	assert.Equal(t, int64(2), got.Version)
}

func TestOrderRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	o := newPostOrder()
	require.NoError(t, repo.Insert(ctx, o))

	sync := order.SyncPending
	require.NoError(t, repo.Update(ctx, o.ID, 1, order.Patch{PaymentSync: &sync}))

	// A writer still holding version 1 must not clobber the update.
	err := repo.Update(ctx, o.ID, 1, order.Patch{PaymentSync: &sync})
	assert.ErrorIs(t, err, order.ErrVersionConflict)

	err = repo.Update(ctx, uuid.New().String(), 1, order.Patch{PaymentSync: &sync})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_CorruptRowsSurfaceDecodeErrors(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	// The CHECK constraints guard normal writes; drop them so this test can
	// simulate hand-edited rows.
	_, err := pool.Exec(ctx, `ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_method_check`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `ALTER TABLE orders DROP CONSTRAINT IF EXISTS orders_payment_sync_check`)
	require.NoError(t, err)

	corrupt := func(t *testing.T, set string) string {
		t.Helper()
		o := newPostOrder()
		require.NoError(t, repo.Insert(ctx, o))
		_, err := pool.Exec(ctx, `UPDATE orders SET `+set+` WHERE id = $1`, o.ID)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, o.ID)
		})
		return o.ID
	}

	t.Run("unknown fulfillment method", func(t *testing.T) {
		id := corrupt(t, `method = 'TELEPORT'`)

		_, err := repo.Get(ctx, id)
		var decErr *order.DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, id, decErr.ID)
	})

	t.Run("address is not an object", func(t *testing.T) {
		id := corrupt(t, `address = '[1, 2, 3]'::jsonb`)

		_, err := repo.Get(ctx, id)
		var decErr *order.DecodeError
		require.ErrorAs(t, err, &decErr)
	})

	t.Run("unknown payment sync status", func(t *testing.T) {
		id := corrupt(t, `payment_sync = 'limbo'`)

		_, err := repo.Get(ctx, id)
		var decErr *order.DecodeError
		require.ErrorAs(t, err, &decErr)
	})

	t.Run("list surfaces corruption", func(t *testing.T) {
		corrupt(t, `method = 'TELEPORT'`)

		// List scans every row, so a corrupt one fails the whole read
		// instead of being silently skipped.
		_, err := repo.List(ctx)
		var decErr *order.DecodeError
		require.ErrorAs(t, err, &decErr)
	})
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)

	before, err := repo.List(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, newPostOrder()))
	require.NoError(t, repo.Insert(ctx, newPostOrder()))

	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+2)
}
