package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/xenking/pizza-cart/pkg/httpmiddleware"
)

const (
	// SessionHeader carries the session id in both directions.
	SessionHeader = "X-Session-ID"
	// SessionCookie is set when a new session is issued.
	SessionCookie = "cart_session"

	maxSessionLen = 64
	sessionMaxAge = 30 * 24 * 60 * 60
)

// resolveSession returns the session id of r from the header or the cookie,
// issuing a new one when neither holds a usable id.
func resolveSession(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if !httpmiddleware.Printable(id, maxSessionLen) {
		id = ""
		if c, err := r.Cookie(SessionCookie); err == nil && httpmiddleware.Printable(c.Value, maxSessionLen) {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set(SessionHeader, id)
	return id
}
