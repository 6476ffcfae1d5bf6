// Command order-export dumps all orders to a gzip-compressed JSON Lines file
// for offline analysis or backup.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/softwool/scarf-orders/internal/domain/order"
	"github.com/softwool/scarf-orders/internal/repository"
)

// record is one exported line. The payment client secret is never stored and
// never exported; only the intent id identifies the payment.
type record struct {
	ID              string         `json:"id"`
	Quantity        int            `json:"quantity"`
	Contact         order.Contact  `json:"contact"`
	Method          string         `json:"method"`
	Address         *order.Address `json:"address,omitempty"`
	PostageCode     string         `json:"postage_code,omitempty"`
	PostagePrice    string         `json:"postage_price,omitempty"`
	PaymentIntentID string         `json:"payment_intent_id,omitempty"`
	PaymentSync     string         `json:"payment_sync,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func main() {
	var (
		databaseURL string
		outPath     string
		since       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outPath, "out", "orders.jsonl.gz", "output file path")
	flag.StringVar(&since, "since", "", "only export orders created at or after this RFC3339 time")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	var cutoff time.Time
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			slog.Error("invalid --since value", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cutoff = t
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outPath, cutoff); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order export completed successfully")
}

func run(ctx context.Context, databaseURL, outPath string, cutoff time.Time) error {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	orders := repository.NewOrderRepository(pool)

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", outPath)
	}
	defer func() { _ = out.Close() }()

	gz := pgzip.NewWriter(out)

	records := make(chan record, 256)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(records)
		return produce(ctx, orders, cutoff, records)
	})

	var written int
	g.Go(func() error {
		enc := json.NewEncoder(gz)
		for rec := range records {
			if err := enc.Encode(rec); err != nil {
				return errors.Wrapf(err, "encode order %s", rec.ID)
			}
			written++
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip stream")
	}

	slog.Info("orders exported", slog.Int("count", written), slog.String("file", outPath))
	return nil
}

func produce(ctx context.Context, orders order.Repository, cutoff time.Time, out chan<- record) error {
	all, err := orders.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}

	for i := range all {
		o := &all[i]
		if !cutoff.IsZero() && o.CreatedAt.Before(cutoff) {
			continue
		}
		select {
		case out <- toRecord(o):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func toRecord(o *order.Order) record {
	rec := record{
		ID:        o.ID,
		Quantity:  o.Quantity,
		Contact:   o.Contact,
		Method:    string(o.Method),
		Address:   o.Address,
		CreatedAt: o.CreatedAt,
	}
	if o.Postage != nil {
		rec.PostageCode = o.Postage.Code
		rec.PostagePrice = o.Postage.Price.StringFixed(2)
	}
	if o.Payment != nil {
		rec.PaymentIntentID = o.Payment.IntentID
	}
	rec.PaymentSync = string(o.PaymentSync)
	return rec
}
