package chat

import (
	"context"
	"sync"
	"time"

	"github.com/KMohnishM/Deep-Shiva/internal/observability"
)

// Factory builds the Conversation for a new session id.
type Factory func(ctx context.Context, id string) (*Conversation, error)

// Registry maps session ids to live conversations. Creation happens under
// the registry lock, so concurrent first contacts for one id share a single
// Conversation. The lock is never held during a remote call. Every lookup
// stamps the conversation as seen, which Sweep honours.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Conversation
	factory  Factory
	metrics  *observability.Metrics

	// now is injectable for tests.
	now func() time.Time
}

// NewRegistry returns an empty registry using factory for new ids.
func NewRegistry(factory Factory, metrics *observability.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Conversation),
		factory:  factory,
		metrics:  metrics,
		now:      time.Now,
	}
}

// GetOrCreate returns the conversation for id, creating and registering it if
// absent. The bool reports whether it was created by this call. A factory
// error leaves the registry unchanged.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.sessions[id]; ok {
		conv.touch(r.now())
		return conv, false, nil
	}

	conv, err := r.factory(ctx, id)
	if err != nil {
		return nil, false, err
	}
	conv.touch(r.now())
	r.sessions[id] = conv
	r.metrics.SetActiveSessions(len(r.sessions))
	return conv, true, nil
}

// Get returns the conversation for id, if registered.
func (r *Registry) Get(id string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.sessions[id]
	if ok {
		conv.touch(r.now())
	}
	return conv, ok
}

// Remove deletes id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.metrics.SetActiveSessions(len(r.sessions))
	return true
}

// Sweep removes every session whose id is not in live and that has been idle
// for longer than idle, and returns how many were removed. Sessions with an
// exchange running or queued are always kept. Removed conversations reject
// further exchanges.
func (r *Registry) Sweep(live map[string]struct{}, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, conv := range r.sessions {
		if _, ok := live[id]; ok {
			continue
		}
		if !conv.idle(cutoff) {
			continue
		}
		conv.closed.Store(true)
		delete(r.sessions, id)
		removed++
	}
	r.metrics.SetActiveSessions(len(r.sessions))
	r.metrics.AddSwept(removed)
	return removed
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the registered session ids in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
