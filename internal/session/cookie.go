package session

import (
	"net/http"
	"time"

	authmw "govportal/pkg/platform/middleware/auth"
)

// Cookies writes and clears the session cookie.
type Cookies struct {
	Secure bool
}

// Set writes the session cookie for an issued token.
func (c Cookies) Set(w http.ResponseWriter, issued Issued, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.SessionCookieName,
		Value:    issued.Token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authmw.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
