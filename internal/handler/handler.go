// Package handler serves the cart JSON API consumed by the storefront widget.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/checkout"
	"github.com/xenking/pizza-cart/internal/domain/theme"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// Handler routes API requests to the cart registry, the theme service and
// the checkout composer.
type Handler struct {
	carts    *cart.Registry
	themes   *theme.Service
	composer *checkout.Composer
}

// New creates a Handler.
func New(carts *cart.Registry, themes *theme.Service, composer *checkout.Composer) *Handler {
	return &Handler{
		carts:    carts,
		themes:   themes,
		composer: composer,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/cart", h.route(h.getCart))
	mux.Handle("POST /api/cart/items", h.route(h.addItem))
	mux.Handle("DELETE /api/cart/items/{name}", h.route(h.removeItem))
	mux.Handle("DELETE /api/cart/lines/{index}", h.route(h.removeLine))
	mux.Handle("POST /api/checkout", h.route(h.checkout))
	mux.Handle("GET /api/theme", h.route(h.getTheme))
	mux.Handle("POST /api/theme/toggle", h.route(h.toggleTheme))
}

// routeFunc handles a request for an already resolved session.
type routeFunc func(w http.ResponseWriter, r *http.Request, session string) error

// route resolves the session, annotates the span and maps a returned error
// to a JSON error response.
func (h *Handler) route(fn routeFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := resolveSession(w, r)

		ctx := r.Context()
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("cart.session", session))
		ctx = zctx.With(ctx, zap.String("session", session))

		if err := fn(w, r.WithContext(ctx), session); err != nil {
			writeFailure(ctx, w, err)
		}
	})
}

func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, cart.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
