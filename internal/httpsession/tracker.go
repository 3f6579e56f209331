// Package httpsession keeps the transport side of a chat session: which id a
// request belongs to and when each id was last seen.
package httpsession

import (
	"sync"
	"time"
)

// Tracker records the last time each session id made a request. It is safe
// for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Touch marks id as seen now. Empty ids are ignored.
func (t *Tracker) Touch(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[id] = t.now()
}

// Forget drops id. It is a no-op if id was never seen.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, id)
}

// Live returns the ids seen within ttl and forgets the rest.
func (t *Tracker) Live(ttl time.Duration) map[string]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-ttl)
	live := make(map[string]struct{}, len(t.seen))
	for id, last := range t.seen {
		if last.Before(cutoff) {
			delete(t.seen, id)
			continue
		}
		live[id] = struct{}{}
	}
	return live
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
