// Command cart-export archives every persisted cart snapshot as gzip
// compressed JSON lines, one {"session":..., "items":[...]} object per cart.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/storage"
)

const progressEvery = 10_000

// snapshot is a decoded cart on its way to the archive.
type snapshot struct {
	session string
	items   []cart.Item
}

// stats counts what export did.
type stats struct {
	written int
	skipped int
}

func main() {
	var (
		cfg storage.Config
		out string
	)

	flag.StringVar(&cfg.Driver, "store", storage.DriverPostgres, "storage driver: postgres or redis")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.RedisURL, "redis-url", "", "Redis connection URL (or REDIS_URL env)")
	flag.StringVar(&out, "out", "carts.jsonl.gz", "output file")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, out); err != nil {
		slog.Error("cart export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg storage.Config, out string) error {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() { _ = backend.Close() }()

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s", out)
	}
	defer func() { _ = f.Close() }()

	st, err := export(ctx, backend, f)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", out)
	}

	slog.Info("cart export completed",
		slog.String("out", out),
		slog.Int("carts", st.written),
		slog.Int("skipped", st.skipped),
	)
	return nil
}

// export scans the cart snapshots of backend and writes them to w. Malformed
// snapshots are logged and skipped.
func export(ctx context.Context, backend storage.Backend, w io.Writer) (stats, error) {
	var st stats
	snapshots := make(chan snapshot, 64)
	prefix := cart.SessionKey("")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(snapshots)
		err := backend.Scan(ctx, prefix, func(key, value string) error {
			items, err := cart.Decode(value)
			if err != nil {
				slog.Warn("skipping malformed snapshot",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				st.skipped++
				return nil
			}
			select {
			case snapshots <- snapshot{session: strings.TrimPrefix(key, prefix), items: items}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		return errors.Wrap(err, "scan snapshots")
	})
	g.Go(func() error {
		gz := pgzip.NewWriter(w)
		var e jx.Encoder
		for s := range snapshots {
			e.Reset()
			e.ObjStart()
			e.FieldStart("session")
			e.Str(s.session)
			e.FieldStart("items")
			cart.WriteItems(&e, s.items)
			e.ObjEnd()
			if _, err := gz.Write(append(e.Bytes(), '\n')); err != nil {
				return errors.Wrap(err, "write archive")
			}

			st.written++
			if st.written%progressEvery == 0 {
				slog.Info("export progress", slog.Int("carts", st.written))
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.Wrap(gz.Close(), "close archive")
	})

	if err := g.Wait(); err != nil {
		return stats{}, err
	}
	return st, nil
}
