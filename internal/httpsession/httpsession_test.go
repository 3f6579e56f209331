package httpsession

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLiveForgetsStaleIDs(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.now = func() time.Time { return now }

	tracker.Touch("old")
	now = now.Add(30 * time.Minute)
	tracker.Touch("fresh")
	tracker.Touch("")
	now = now.Add(20 * time.Minute)

	live := tracker.Live(45 * time.Minute)
	assert.Equal(t, map[string]struct{}{"fresh": {}}, live)
	assert.Equal(t, 1, tracker.Len())
}

func TestTrackerForget(t *testing.T) {
	tracker := NewTracker()
	tracker.Touch("a")
	tracker.Forget("a")
	tracker.Forget("never")
	assert.Zero(t, tracker.Len())
}

func TestResolveOrder(t *testing.T) {
	cookies := Cookies{Name: "sid"}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", cookies.Resolve(req, ""))

	req.Header.Set(HeaderSessionID, "from-header")
	assert.Equal(t, "from-header", cookies.Resolve(req, ""))
	assert.Equal(t, "from-body", cookies.Resolve(req, " from-body "))

	bare := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	assert.Empty(t, cookies.Resolve(bare, ""))
}

func TestSetAndExpireCookie(t *testing.T) {
	cookies := Cookies{Name: "sid", TTL: time.Hour}

	rec := httptest.NewRecorder()
	cookies.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), "abc")
	issued := rec.Result().Cookies()
	require.Len(t, issued, 1)
	assert.Equal(t, "abc", issued[0].Value)
	assert.Equal(t, 3600, issued[0].MaxAge)
	assert.True(t, issued[0].HttpOnly)

	rec = httptest.NewRecorder()
	cookies.Expire(rec)
	expired := rec.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Empty(t, expired[0].Value)
	assert.Equal(t, -1, expired[0].MaxAge)
}

func TestManagerBindAndRelease(t *testing.T) {
	manager := NewManager("sid", time.Hour)

	rec := httptest.NewRecorder()
	manager.Bind(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil), "abc")
	assert.Equal(t, "abc", rec.Header().Get(HeaderSessionID))
	assert.Contains(t, manager.Live(time.Hour), "abc")

	rec = httptest.NewRecorder()
	manager.Release(rec, "abc")
	assert.Zero(t, manager.Tracker.Len())
	require.Len(t, rec.Result().Cookies(), 1)
}
