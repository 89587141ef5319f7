package render

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

const meterName = "github.com/xenking/pizza-cart/internal/render"

// Metrics records every render as telemetry.
type Metrics struct {
	renders metric.Int64Counter
	units   metric.Int64Histogram
	total   metric.Float64Histogram
}

var _ cart.Renderer = (*Metrics)(nil)

// NewMetrics registers the cart instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	renders, err := meter.Int64Counter("cart.renders",
		metric.WithDescription("Number of cart renders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create renders counter")
	}
	units, err := meter.Int64Histogram("cart.units",
		metric.WithDescription("Units in the cart at render time"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create units histogram")
	}
	total, err := meter.Float64Histogram("cart.total",
		metric.WithDescription("Cart total at render time"),
		metric.WithUnit("{USD}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create total histogram")
	}

	return &Metrics{renders: renders, units: units, total: total}, nil
}

// Render records v.
func (m *Metrics) Render(ctx context.Context, v cart.View) {
	attrs := metric.WithAttributes(attribute.Bool("cart.empty", v.Empty()))
	m.renders.Add(ctx, 1, attrs)
	m.units.Record(ctx, int64(v.Count), attrs)
	m.total.Record(ctx, v.Total.InexactFloat64(), attrs)
}
