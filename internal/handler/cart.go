package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, session string) error {
	m, err := h.carts.Get(r.Context(), session)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	writeView(w, m.View())
	return nil
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request, session string) error {
	req, err := readAddItem(w, r)
	if err != nil {
		return err
	}
	m, err := h.carts.Get(r.Context(), session)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	if err := m.Add(r.Context(), req.Name, req.Price); err != nil {
		return errors.Wrap(err, "add item")
	}
	writeView(w, m.View())
	return nil
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request, session string) error {
	name := r.PathValue("name")
	m, err := h.carts.Get(r.Context(), session)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	removed, err := m.RemoveByName(r.Context(), name)
	if err != nil {
		return errors.Wrap(err, "remove item")
	}
	if !removed {
		return errors.Wrapf(errNotFound, "item %q", name)
	}
	writeView(w, m.View())
	return nil
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request, session string) error {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return errors.Wrapf(errBadRequest, "line index %q", r.PathValue("index"))
	}
	m, err := h.carts.Get(r.Context(), session)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	removed, err := m.Remove(r.Context(), index)
	if err != nil {
		return errors.Wrap(err, "remove line")
	}
	if !removed {
		return errors.Wrapf(errNotFound, "line %d", index)
	}
	writeView(w, m.View())
	return nil
}

func writeView(w http.ResponseWriter, v cart.View) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeView(e, v) })
}
