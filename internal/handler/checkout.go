package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, session string) error {
	m, err := h.carts.Get(r.Context(), session)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	v := m.View()
	msg, err := h.composer.Compose(v)
	if err != nil {
		return err
	}
	zctx.From(r.Context()).Info("Checkout composed",
		zap.Int("count", v.Count),
		zap.String("total", v.Total.StringFixed(2)),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMessage(e, msg) })
	return nil
}
