package httpsession

import (
	"net/http"
	"strings"
	"time"
)

// HeaderSessionID lets non-browser clients name their session explicitly.
const HeaderSessionID = "X-Session-ID"

// Cookies resolves and issues the session cookie.
type Cookies struct {
	Name string
	TTL  time.Duration
}

// Resolve picks the session id for r: an explicit id from the request body
// wins, then the X-Session-ID header, then the cookie.
func (c Cookies) Resolve(r *http.Request, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(HeaderSessionID)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(c.Name); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// Set issues the session cookie for id.
func (c Cookies) Set(w http.ResponseWriter, r *http.Request, id string) {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if c.TTL > 0 {
		cookie.MaxAge = int(c.TTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

// Expire tells the client to drop the session cookie.
func (c Cookies) Expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
}
