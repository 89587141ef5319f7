package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/pizza-cart/internal/storage"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Store       StoreConfig
	MaxSessions int `default:"10000" usage:"Live carts kept in memory, 0 for unbounded" flag:"max-sessions"`
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string        `default:"memory" usage:"Storage driver: memory, postgres or redis"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (CART_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string        `usage:"Redis connection URL (CART_STORE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	TTL         time.Duration `default:"0" usage:"Snapshot expiry on redis, 0 keeps them forever"`
}

// CheckoutConfig controls the composed order message.
type CheckoutConfig struct {
	Phone    string `usage:"Phone number orders are sent to"`
	Greeting string `usage:"First line of the order message"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow the session cookie on cross-origin requests; needs explicit origins" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "CART",
		Files:     []string{"config.yaml", "/etc/cart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case storage.DriverMemory:
	case storage.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("database URL is required: set CART_STORE_DATABASE_URL or DATABASE_URL")
		}
	case storage.DriverRedis:
		if c.Store.RedisURL == "" {
			return errors.New("redis URL is required: set CART_STORE_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.MaxSessions < 0 {
		return errors.Errorf("max sessions must not be negative, got %d", c.MaxSessions)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.CORS.AllowCredentials && slices.Contains(c.CORS.Origins, "*") {
		return errors.New("CORS credentials require explicit origins, not *")
	}
	return nil
}

// storageConfig converts StoreConfig for storage.Open.
func (c StoreConfig) storageConfig() storage.Config {
	return storage.Config{
		Driver:      c.Driver,
		DatabaseURL: c.DatabaseURL,
		RedisURL:    c.RedisURL,
		TTL:         c.TTL,
	}
}
