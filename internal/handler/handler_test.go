package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/checkout"
	"github.com/xenking/pizza-cart/internal/domain/theme"
	"github.com/xenking/pizza-cart/internal/storage/memory"
)

// --- Mock implementations ---

type failingStore struct {
	*memory.Store
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

// --- Helpers ---

type store interface {
	cart.Store
	theme.Store
}

func newMux(s store) *http.ServeMux {
	h := New(
		cart.NewRegistry(s, cart.RegistryOptions{}),
		theme.NewService(s, nil),
		checkout.NewComposer(checkout.Config{Phone: "15550100"}),
	)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

type viewResponse struct {
	Items []struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
		Subtotal string  `json:"subtotal"`
	} `json:"items"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func do(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(SessionHeader, "s1")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// --- Tests ---

func TestSession(t *testing.T) {
	mux := newMux(memory.New())

	t.Run("Issued", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
		require.Equal(t, http.StatusOK, w.Code)

		id := w.Header().Get(SessionHeader)
		require.NotEmpty(t, id)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})
	t.Run("Header", func(t *testing.T) {
		w := do(t, mux, http.MethodGet, "/api/cart", "")
		assert.Equal(t, "s1", w.Header().Get(SessionHeader))
		assert.Empty(t, w.Result().Cookies())
	})
	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, "from-cookie", w.Header().Get(SessionHeader))
		assert.Empty(t, w.Result().Cookies())
	})
	t.Run("Isolated", func(t *testing.T) {
		require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Margherita","price":8}`).Code)

		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(SessionHeader, "s2")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		assert.Equal(t, 0, decode[viewResponse](t, w).Count)
	})
}

func TestCart(t *testing.T) {
	s := memory.New()
	mux := newMux(s)

	w := do(t, mux, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[viewResponse](t, w)
	assert.Empty(t, v.Items)
	assert.Equal(t, "0.00", v.Total)
	assert.Equal(t, 0, v.Count)

	do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Margherita","price":8}`)
	do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Margherita","price":8}`)
	w = do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Pepperoni","price":"10"}`)
	require.Equal(t, http.StatusOK, w.Code)

	v = decode[viewResponse](t, w)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Margherita", v.Items[0].Name)
	assert.Equal(t, 8.0, v.Items[0].Price)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Equal(t, "16.00", v.Items[0].Subtotal)
	assert.Equal(t, "26.00", v.Total)
	assert.Equal(t, 3, v.Count)

	raw, ok, err := s.Get(context.Background(), cart.SessionKey("s1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"Margherita","price":8,"qty":2},{"name":"Pepperoni","price":10,"qty":1}]`, raw)

	t.Run("RemoveLineOutOfRange", func(t *testing.T) {
		w := do(t, mux, http.MethodDelete, "/api/cart/lines/5", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, 3, decode[viewResponse](t, do(t, mux, http.MethodGet, "/api/cart", "")).Count)
	})
	t.Run("RemoveLineBadIndex", func(t *testing.T) {
		w := do(t, mux, http.MethodDelete, "/api/cart/lines/first", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("RemoveLine", func(t *testing.T) {
		w := do(t, mux, http.MethodDelete, "/api/cart/lines/0", "")
		require.Equal(t, http.StatusOK, w.Code)
		v := decode[viewResponse](t, w)
		require.Len(t, v.Items, 1)
		assert.Equal(t, "Pepperoni", v.Items[0].Name)
		assert.Equal(t, "10.00", v.Total)
	})
	t.Run("RemoveItemByName", func(t *testing.T) {
		do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Quattro Formaggi","price":12.5}`)

		w := do(t, mux, http.MethodDelete, "/api/cart/items/Quattro%20Formaggi", "")
		require.Equal(t, http.StatusOK, w.Code)
		v := decode[viewResponse](t, w)
		require.Len(t, v.Items, 1)
		assert.Equal(t, "Pepperoni", v.Items[0].Name)

		w = do(t, mux, http.MethodDelete, "/api/cart/items/Quattro%20Formaggi", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAddItem_Invalid(t *testing.T) {
	mux := newMux(memory.New())

	for _, tt := range []struct {
		name string
		body string
	}{
		{"EmptyName", `{"name":"","price":5}`},
		{"NegativePrice", `{"name":"Margherita","price":-1}`},
		{"MissingPrice", `{"name":"Margherita"}`},
		{"PriceNotNumber", `{"name":"Margherita","price":true}`},
		{"NotJSON", `pizza`},
		{"HugeExponent", `{"name":"Bomb","price":1e5000000}`},
		{"HugeExponentString", `{"name":"Bomb","price":"1e5000000"}`},
		{"TinyExponent", `{"name":"Crumb","price":1e-5000000}`},
		{"PriceAboveLimit", `{"name":"Banquet","price":1000000001}`},
		{"TooManyFractionalDigits", `{"name":"Margherita","price":8.00001}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, mux, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Less(t, w.Body.Len(), 512)
			assert.Equal(t, http.StatusBadRequest, decode[errorResponse](t, w).Code)
		})
	}

	assert.Equal(t, 0, decode[viewResponse](t, do(t, mux, http.MethodGet, "/api/cart", "")).Count)
}

func TestCheckout(t *testing.T) {
	mux := newMux(memory.New())

	w := do(t, mux, http.MethodPost, "/api/checkout", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Margherita","price":8}`)
	w = do(t, mux, http.MethodPost, "/api/checkout", "")
	require.Equal(t, http.StatusOK, w.Code)

	msg := decode[struct {
		Message string `json:"message"`
		URL     string `json:"url"`
	}](t, w)
	assert.Equal(t, "Hello Pizza Palace! I would like to order:\n\n- Margherita (x1) - $8.00\n\n*Total Price: $8.00*", msg.Message)
	assert.True(t, strings.HasPrefix(msg.URL, "https://wa.me/15550100?text="), msg.URL)

	// Checkout does not clear the cart.
	assert.Equal(t, 1, decode[viewResponse](t, do(t, mux, http.MethodGet, "/api/cart", "")).Count)
}

func TestTheme(t *testing.T) {
	mux := newMux(memory.New())

	type themeResponse struct {
		Theme string `json:"theme"`
		Icon  string `json:"icon"`
	}

	got := decode[themeResponse](t, do(t, mux, http.MethodGet, "/api/theme", ""))
	assert.Equal(t, themeResponse{Theme: "light", Icon: "🌙"}, got)

	got = decode[themeResponse](t, do(t, mux, http.MethodPost, "/api/theme/toggle", ""))
	assert.Equal(t, themeResponse{Theme: "dark", Icon: "☀️"}, got)

	got = decode[themeResponse](t, do(t, mux, http.MethodGet, "/api/theme", ""))
	assert.Equal(t, "dark", got.Theme)
}

func TestStoreFailure(t *testing.T) {
	mux := newMux(failingStore{Store: memory.New()})

	w := do(t, mux, http.MethodPost, "/api/cart/items", `{"name":"Margherita","price":8}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode[errorResponse](t, w).Message)

	assert.Equal(t, 0, decode[viewResponse](t, do(t, mux, http.MethodGet, "/api/cart", "")).Count)

	w = do(t, mux, http.MethodPost, "/api/theme/toggle", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
