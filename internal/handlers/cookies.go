package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

const browserCookie = "fapagri_browser"

// browserID returns the id in the request cookie, minting and setting a new
// one when the browser has none.
func (s *Server) browserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(browserCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     browserCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   s.cfg.Security.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
