package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockStore struct {
	data   map[string]string
	sets   int
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

type recordingRenderer struct {
	views []View
}

func (r *recordingRenderer) Render(_ context.Context, v View) {
	r.views = append(r.views, v)
}

func (r *recordingRenderer) last() View {
	return r.views[len(r.views)-1]
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func loadManager(t *testing.T, store Store) (*Manager, *recordingRenderer) {
	t.Helper()
	r := &recordingRenderer{}
	m, err := Load(context.Background(), store, Options{Renderer: r})
	require.NoError(t, err)
	return m, r
}

// --- Tests ---

func TestLoad_EmptyStore(t *testing.T) {
	m, r := loadManager(t, newMockStore())

	assert.Empty(t, m.Items())
	assert.True(t, m.Total().IsZero())
	assert.Equal(t, 0, m.ItemCount())
	require.Len(t, r.views, 1, "startup render")
	assert.True(t, r.views[0].Empty())
}

func TestLoad_MalformedSnapshot(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"name":"Margherita"}`,
		`[{"name":"Margherita","price":"abc","qty":1}]`,
		`[{"price":8,"qty":1}]`,
		`[{"name":"Margherita","price":-1,"qty":1}]`,
	} {
		t.Run(raw, func(t *testing.T) {
			store := newMockStore()
			store.data[DefaultKey] = raw

			m, r := loadManager(t, store)
			assert.Empty(t, m.Items())
			assert.Len(t, r.views, 1)
		})
	}
}

func TestLoad_StoreError(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")

	_, err := Load(context.Background(), store, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLoad_RestoresSnapshot(t *testing.T) {
	store := newMockStore()
	store.data["custom"] = `[{"name":"Margherita","price":8,"qty":2},{"name":"Pepperoni","price":10.5,"qty":1}]`

	m, err := Load(context.Background(), store, Options{Key: "custom"})
	require.NoError(t, err)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Margherita", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, dec("26.5").Equal(m.Total()))
	assert.Equal(t, 3, m.ItemCount())
}

func TestAdd_Scenario(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, r := loadManager(t, store)

	require.NoError(t, m.Add(ctx, "Margherita", dec("8.00")))
	require.NoError(t, m.Add(ctx, "Margherita", dec("8.00")))
	require.NoError(t, m.Add(ctx, "Pepperoni", dec("10.00")))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Margherita", items[0].Name)
	assert.True(t, dec("8").Equal(items[0].Price))
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Pepperoni", items[1].Name)
	assert.True(t, dec("10").Equal(items[1].Price))
	assert.Equal(t, 1, items[1].Quantity)

	assert.True(t, dec("26.00").Equal(m.Total()))
	assert.Equal(t, 3, m.ItemCount())

	// One render at startup plus one per mutation, each persisted first.
	assert.Len(t, r.views, 4)
	assert.Equal(t, 3, store.sets)
	assert.Equal(t, 3, r.last().Count)
	assert.Equal(t, "26.00", r.last().Total.StringFixed(2))
	assert.True(t, dec("16").Equal(r.last().Lines[0].Subtotal))

	restored, err := Decode(store.data[DefaultKey])
	require.NoError(t, err)
	require.Len(t, restored, len(items))
	for i := range items {
		assert.Equal(t, items[i].Name, restored[i].Name)
		assert.True(t, items[i].Price.Equal(restored[i].Price))
		assert.Equal(t, items[i].Quantity, restored[i].Quantity)
	}
}

func TestAdd_KeepsFirstPrice(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())

	require.NoError(t, m.Add(ctx, "Margherita", dec("8.00")))
	require.NoError(t, m.Add(ctx, "Margherita", dec("12.00")))
	require.NoError(t, m.Add(ctx, "Margherita", dec("0")))

	items := m.Items()
	require.Len(t, items, 1)
	assert.True(t, dec("8").Equal(items[0].Price))
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, dec("24").Equal(m.Total()))
}

func TestAdd_DistinctNames(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())

	names := []string{"a", "b", "c", "d", "e", "f"}
	for i, name := range names {
		require.NoError(t, m.Add(ctx, name, decimal.NewFromInt(int64(i))))
	}

	assert.Equal(t, len(names), m.ItemCount())
	assert.Len(t, m.Items(), len(names))
}

func TestAdd_InvalidItem(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, r := loadManager(t, store)

	tests := []struct {
		name  string
		item  string
		price decimal.Decimal
	}{
		{name: "empty name", item: "", price: dec("1")},
		{name: "negative price", item: "Margherita", price: dec("-0.01")},
		{name: "price above limit", item: "Margherita", price: dec("1000000000.01")},
		{name: "huge exponent", item: "Bomb", price: dec("1e5000000")},
		{name: "tiny exponent", item: "Crumb", price: dec("1e-5000000")},
		{name: "too many fractional digits", item: "Margherita", price: dec("8.00001")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Add(ctx, tt.item, tt.price)
			require.ErrorIs(t, err, ErrInvalidItem)

			var invalid *InvalidItemError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.item, invalid.Name)
		})
	}

	assert.Empty(t, m.Items())
	assert.Zero(t, store.sets)
	assert.Len(t, r.views, 1)

	// Valid calls are unaffected.
	require.NoError(t, m.Add(ctx, "Margherita", dec("0")))
	assert.Equal(t, 1, m.ItemCount())
}

func TestAdd_PriceLimits(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())

	require.NoError(t, m.Add(ctx, "Banquet", MaxPrice))
	require.NoError(t, m.Add(ctx, "Crust", dec("0.0001")))
	assert.True(t, m.Total().Equal(dec("1000000000.0001")))
}

func TestAdd_QuantityLimit(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.data[DefaultKey] = fmt.Sprintf(`[{"name":"Margherita","price":8,"qty":%d}]`, MaxQuantity)
	m, _ := loadManager(t, store)
	require.Equal(t, MaxQuantity, m.ItemCount())

	err := m.Add(ctx, "Margherita", dec("8"))
	require.ErrorIs(t, err, ErrInvalidItem)
	assert.Equal(t, MaxQuantity, m.ItemCount())
	assert.Zero(t, store.sets)
}

func TestAdd_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, r := loadManager(t, store)
	require.NoError(t, m.Add(ctx, "Margherita", dec("8")))

	store.setErr = errors.New("disk full")
	err := m.Add(ctx, "Margherita", dec("8"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist snapshot")

	assert.Equal(t, 1, m.ItemCount())
	assert.Len(t, r.views, 2, "no render for a discarded mutation")
}

func TestRemove_Scenario(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, r := loadManager(t, store)

	require.NoError(t, m.Add(ctx, "Margherita", dec("8.00")))
	require.NoError(t, m.Add(ctx, "Margherita", dec("8.00")))
	require.NoError(t, m.Add(ctx, "Pepperoni", dec("10.00")))

	removed, err := m.Remove(ctx, 0)
	require.NoError(t, err)
	assert.True(t, removed)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, Item{Name: "Pepperoni", Price: dec("10.00"), Quantity: 1}, items[0])
	assert.True(t, dec("10.00").Equal(m.Total()))
	assert.Equal(t, 1, r.last().Count)
	assert.Equal(t, `[{"name":"Pepperoni","price":10,"qty":1}]`, store.data[DefaultKey])
}

func TestRemove_OutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, r := loadManager(t, store)
	require.NoError(t, m.Add(ctx, "Pepperoni", dec("10")))

	for _, idx := range []int{5, 1, -1} {
		removed, err := m.Remove(ctx, idx)
		require.NoError(t, err)
		assert.False(t, removed)
	}

	assert.Len(t, m.Items(), 1)
	assert.Equal(t, 1, store.sets)
	assert.Len(t, r.views, 2)
}

func TestRemove_ShiftsIndices(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Add(ctx, name, dec("1.10")))
	}

	removed, err := m.Remove(ctx, 1)
	require.NoError(t, err)
	require.True(t, removed)

	var names []string
	for _, it := range m.Items() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)

	for m.ItemCount() > 0 {
		_, err := m.Remove(ctx, 0)
		require.NoError(t, err)
	}
	assert.True(t, m.Total().IsZero())
	assert.Equal(t, 0, m.ItemCount())
}

func TestRemove_WholeLine(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())
	for range 3 {
		require.NoError(t, m.Add(ctx, "Margherita", dec("8")))
	}

	removed, err := m.Remove(ctx, 0)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, m.ItemCount())
}

func TestRemoveByName(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.Add(ctx, name, dec("2")))
	}

	// Both removals were queued from the same render: by identity, neither
	// hits a shifted neighbour.
	for _, name := range []string{"a", "b"} {
		removed, err := m.RemoveByName(ctx, name)
		require.NoError(t, err)
		assert.True(t, removed)
	}
	removed, err := m.RemoveByName(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].Name)
}

func TestRemove_PersistFailure(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	m, _ := loadManager(t, store)
	require.NoError(t, m.Add(ctx, "a", dec("1")))

	store.setErr = errors.New("timeout")
	removed, err := m.Remove(ctx, 0)
	require.Error(t, err)
	assert.False(t, removed)
	assert.Len(t, m.Items(), 1)
}

func TestTotal_NoDrift(t *testing.T) {
	ctx := context.Background()
	m, _ := loadManager(t, newMockStore())

	for range 1000 {
		require.NoError(t, m.Add(ctx, "a", dec("0.10")))
		require.NoError(t, m.Add(ctx, "b", dec("0.20")))
		_, err := m.RemoveByName(ctx, "b")
		require.NoError(t, err)
	}
	assert.True(t, dec("100").Equal(m.Total()), "got %s", m.Total())
}
