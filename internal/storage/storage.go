// Package storage opens the key-value backend that holds cart snapshots and
// theme preferences.
package storage

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/theme"
	"github.com/xenking/pizza-cart/internal/storage/memory"
	"github.com/xenking/pizza-cart/internal/storage/postgres"
	"github.com/xenking/pizza-cart/internal/storage/redis"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Backend is a key-value store with the operations the service and its tools
// need.
type Backend interface {
	cart.Store
	// Scan calls fn for every key starting with prefix, in key order where
	// the backend can provide it.
	Scan(ctx context.Context, prefix string, fn func(key, value string) error) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Backend     = (*memory.Store)(nil)
	_ Backend     = (*postgres.Store)(nil)
	_ Backend     = (*redis.Store)(nil)
	_ theme.Store = Backend(nil)
)

// Config selects and configures a Backend.
type Config struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
	// TTL expires snapshots on backends that support it. Zero keeps them forever.
	TTL time.Duration
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return memory.New(), nil
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres driver requires a database URL")
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewStore(pool), nil
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis driver requires a redis URL")
		}
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis URL")
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "ping redis")
		}
		return redis.NewStore(client, cfg.TTL), nil
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}
