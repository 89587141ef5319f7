// Package render contains the cart renderers wired by the server: a log line
// and telemetry per render.
package render

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

// Multi calls every renderer in order.
func Multi(renderers ...cart.Renderer) cart.Renderer {
	return cart.RendererFunc(func(ctx context.Context, v cart.View) {
		for _, r := range renderers {
			r.Render(ctx, v)
		}
	})
}

// Log writes a debug line with the badge count and total to the context logger.
func Log() cart.Renderer {
	return cart.RendererFunc(func(ctx context.Context, v cart.View) {
		zctx.From(ctx).Debug("Cart rendered",
			zap.Int("lines", len(v.Lines)),
			zap.Int("count", v.Count),
			zap.String("total", v.Total.StringFixed(2)),
		)
	})
}
