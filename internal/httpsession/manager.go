package httpsession

import (
	"net/http"
	"time"
)

// Manager ties the session cookie to last-seen tracking. Handlers Bind every
// id they serve so the expiry sweep keeps it alive.
type Manager struct {
	Cookies Cookies
	Tracker *Tracker
}

// NewManager returns a Manager issuing cookie name with the given lifetime.
func NewManager(name string, ttl time.Duration) *Manager {
	return &Manager{
		Cookies: Cookies{Name: name, TTL: ttl},
		Tracker: NewTracker(),
	}
}

// Resolve returns the session id a request refers to, or "".
func (m *Manager) Resolve(r *http.Request, explicit string) string {
	return m.Cookies.Resolve(r, explicit)
}

// Bind records id as active and hands it back to the client as both cookie
// and X-Session-ID header.
func (m *Manager) Bind(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		return
	}
	m.Tracker.Touch(id)
	m.Cookies.Set(w, r, id)
	w.Header().Set(HeaderSessionID, id)
}

// Touch records id as active without writing to the response.
func (m *Manager) Touch(id string) {
	m.Tracker.Touch(id)
}

// Release forgets id and expires the client's cookie.
func (m *Manager) Release(w http.ResponseWriter, id string) {
	if id != "" {
		m.Tracker.Forget(id)
	}
	m.Cookies.Expire(w)
}

// Live returns the ids seen within ttl.
func (m *Manager) Live(ttl time.Duration) map[string]struct{} {
	return m.Tracker.Live(ttl)
}
