// Package app wires the cart service together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/checkout"
	"github.com/xenking/pizza-cart/internal/domain/theme"
	"github.com/xenking/pizza-cart/internal/handler"
	"github.com/xenking/pizza-cart/internal/render"
	"github.com/xenking/pizza-cart/internal/storage"
	"github.com/xenking/pizza-cart/pkg/health"
	"github.com/xenking/pizza-cart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store.Driver),
	)

	store, err := storage.Open(ctx, cfg.Store.storageConfig())
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			lg.Warn("Close store", zap.Error(err))
		}
	}()

	svc, err := newService(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg, store)
	if err != nil {
		return err
	}
	svc.health.Start(ctx, 10*time.Second)
	defer svc.health.Stop()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.handler,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		svc.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	svc.health.SetReady(true)

	return g.Wait()
}

// service is the HTTP surface of the application over an opened store.
type service struct {
	handler http.Handler
	health  *health.Health
}

func newService(
	ctx context.Context,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
	store storage.Backend,
) (*service, error) {
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("store", 5*time.Second, health.PingCheck(cfg.Store.Driver, store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	metrics, err := render.NewMetrics(mp)
	if err != nil {
		return nil, errors.Wrap(err, "create render metrics")
	}
	carts := cart.NewRegistry(store, cart.RegistryOptions{
		Renderer:    render.Multi(render.Log(), metrics),
		Logger:      lg.Named("cart"),
		MaxSessions: cfg.MaxSessions,
	})
	themes := theme.NewService(store, lg.Named("theme"))
	composer := checkout.NewComposer(checkout.Config{
		Phone:    cfg.Checkout.Phone,
		Greeting: cfg.Checkout.Greeting,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.New(carts, themes, composer).Register(mux)

	api := otelhttp.NewHandler(mux, "cart-api",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithMeterProvider(mp),
	)

	return &service{
		health: healthSvc,
		handler: httpmiddleware.Wrap(api,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.SessionHeader, httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.LogRequests(),
		),
	}, nil
}
