// Package cart implements the shopping cart: an ordered set of line items,
// unique by name, kept in sync with a persisted snapshot and a renderer.
package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidItem is returned when an item is added with an empty name, a
// price out of range, or to a line already at MaxQuantity.
var ErrInvalidItem = errors.New("invalid item")

// InvalidItemError describes why an item was rejected. It matches
// ErrInvalidItem with errors.Is.
type InvalidItemError struct {
	Name   string
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid item %q: %s", e.Name, e.Reason)
}

// Is reports whether target is ErrInvalidItem.
func (e *InvalidItemError) Is(target error) bool {
	return target == ErrInvalidItem
}

const (
	// MaxPriceScale is the number of fractional digits a price may carry.
	MaxPriceScale = 4
	// MaxQuantity bounds the units of a single line.
	MaxQuantity = 100_000
)

// MaxPrice is the largest accepted unit price.
var MaxPrice = decimal.New(1, 9)

// checkPrice returns why p is not an acceptable unit price, or "" when it is.
// Exponents are checked before comparing, as comparison rescales both operands.
func checkPrice(p decimal.Decimal) string {
	switch {
	case p.IsNegative():
		return "price is negative"
	case p.Exponent() < -MaxPriceScale:
		return fmt.Sprintf("price has more than %d fractional digits", MaxPriceScale)
	case p.Exponent() > 9, p.GreaterThan(MaxPrice):
		return "price exceeds " + MaxPrice.String()
	default:
		return ""
	}
}

// Item is a single line item. Price is the unit price recorded when the item
// was first added.
type Item struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Subtotal returns the line subtotal, Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Line is the render-facing projection of an Item.
type Line struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
	Subtotal decimal.Decimal
}

// View is everything needed to redraw the cart list and the badge.
type View struct {
	Lines []Line
	Total decimal.Decimal
	// Count is the number of units in the cart, not the number of lines.
	Count int
}

// Empty reports whether the view has no lines.
func (v View) Empty() bool {
	return len(v.Lines) == 0
}

// NewView builds a View from items in their current order.
func NewView(items []Item) View {
	v := View{
		Lines: make([]Line, len(items)),
		Total: Total(items),
		Count: Count(items),
	}
	for i, it := range items {
		v.Lines[i] = Line{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: it.Subtotal(),
		}
	}
	return v
}

// Total sums Price × Quantity over items without rounding.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count sums quantities over items.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Store holds serialized cart snapshots under string keys.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Renderer redraws dependent UI after a cart state change. It is called with
// the Manager's lock held and must not call back into the Manager.
type Renderer interface {
	Render(ctx context.Context, v View)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, v View)

// Render calls f(ctx, v).
func (f RendererFunc) Render(ctx context.Context, v View) {
	f(ctx, v)
}

var nopRenderer = RendererFunc(func(context.Context, View) {})
