package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultKey is the Store key of a cart that is not scoped to a session.
const DefaultKey = "pizzaCart"

// Options configures a Manager.
type Options struct {
	// Key is the Store key of the snapshot. Defaults to DefaultKey.
	Key      string
	Renderer Renderer
	Logger   *zap.Logger
}

// Manager owns a live cart. Every mutation persists the full snapshot and
// then renders before it returns; a mutation whose write fails is discarded.
type Manager struct {
	key      string
	store    Store
	renderer Renderer
	lg       *zap.Logger

	mu    sync.Mutex
	items []Item
}

// Load restores the cart stored under opts.Key and renders it once. An absent
// or malformed snapshot yields an empty cart; only Store failures are
// returned as errors.
func Load(ctx context.Context, store Store, opts Options) (*Manager, error) {
	m := &Manager{
		key:      opts.Key,
		store:    store,
		renderer: opts.Renderer,
		lg:       opts.Logger,
	}
	if m.key == "" {
		m.key = DefaultKey
	}
	if m.renderer == nil {
		m.renderer = nopRenderer
	}
	if m.lg == nil {
		m.lg = zap.NewNop()
	}

	raw, ok, err := store.Get(ctx, m.key)
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot %q", m.key)
	}
	if ok {
		items, err := Decode(raw)
		if err != nil {
			m.lg.Warn("Discarding malformed cart snapshot",
				zap.String("key", m.key),
				zap.Error(err),
			)
		} else {
			m.items = items
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderer.Render(ctx, NewView(m.items))
	return m, nil
}

// Key returns the Store key of the cart snapshot.
func (m *Manager) Key() string {
	return m.key
}

// Add puts one unit of name into the cart. A repeated name increments the
// existing line and keeps its original price, whatever price is passed.
func (m *Manager) Add(ctx context.Context, name string, price decimal.Decimal) error {
	if name == "" {
		return &InvalidItemError{Name: name, Reason: "name is empty"}
	}
	if reason := checkPrice(price); reason != "" {
		return &InvalidItemError{Name: name, Reason: reason}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := slices.Clone(m.items)
	if i := indexOf(next, name); i >= 0 {
		if next[i].Quantity >= MaxQuantity {
			return &InvalidItemError{Name: name, Reason: "quantity limit reached"}
		}
		next[i].Quantity++
	} else {
		next = append(next, Item{Name: name, Price: price, Quantity: 1})
	}
	return m.commit(ctx, next)
}

// Remove deletes the whole line at index. An out-of-range index leaves the
// cart untouched, is logged, and reports false.
func (m *Manager) Remove(ctx context.Context, index int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.items) {
		m.lg.Warn("Ignoring out-of-range cart removal",
			zap.String("key", m.key),
			zap.Int("index", index),
			zap.Int("lines", len(m.items)),
		)
		return false, nil
	}
	if err := m.commit(ctx, slices.Delete(slices.Clone(m.items), index, index+1)); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveByName deletes the whole line named name. It reports false when no
// such line exists, so removals queued against an older render cannot hit
// the wrong item.
func (m *Manager) RemoveByName(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.items, name)
	if i < 0 {
		m.lg.Debug("Cart line already gone", zap.String("key", m.key), zap.String("name", name))
		return false, nil
	}
	if err := m.commit(ctx, slices.Delete(slices.Clone(m.items), i, i+1)); err != nil {
		return false, err
	}
	return true, nil
}

// commit persists next, swaps it in and renders. Must be called with mu held.
func (m *Manager) commit(ctx context.Context, next []Item) error {
	if err := m.store.Set(ctx, m.key, Encode(next)); err != nil {
		return errors.Wrapf(err, "persist snapshot %q", m.key)
	}
	m.items = next
	m.renderer.Render(ctx, NewView(m.items))
	return nil
}

// Items returns a copy of the current lines in cart order.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Total returns the exact sum of Price × Quantity.
func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Total(m.items)
}

// ItemCount returns the number of units in the cart.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Count(m.items)
}

// View returns the render projection of the current cart.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewView(m.items)
}
