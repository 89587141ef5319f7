package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/theme"
)

func (h *Handler) getTheme(w http.ResponseWriter, r *http.Request, session string) error {
	t, err := h.themes.Current(r.Context(), session)
	if err != nil {
		return err
	}
	writeTheme(w, t)
	return nil
}

func (h *Handler) toggleTheme(w http.ResponseWriter, r *http.Request, session string) error {
	t, err := h.themes.Toggle(r.Context(), session)
	if err != nil {
		return err
	}
	writeTheme(w, t)
	return nil
}

func writeTheme(w http.ResponseWriter, t theme.Theme) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeTheme(e, t) })
}
