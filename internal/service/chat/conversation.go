package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/observability"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
)

// Completer is the remote completion boundary a Conversation talks to.
type Completer interface {
	Complete(ctx context.Context, p ai.Prompt) (string, error)
	Stream(ctx context.Context, p ai.Prompt, onDelta func(string)) (string, error)
}

// Conversation binds a persona, its system instruction, a Memory and a
// Completer for one session. All methods are safe for concurrent use; calls
// on the same Conversation run one at a time, including the remote call.
type Conversation struct {
	id       string
	client   Completer
	composer *ai.PromptComposer
	metrics  *observability.Metrics

	mu         sync.Mutex
	persona    persona.Persona
	system     string
	memory     *Memory
	createdAt  time.Time
	lastActive time.Time

	// seen is the unix nano time of the last lookup through the registry.
	seen     atomic.Int64
	inflight atomic.Int32
	closed   atomic.Bool
}

// NewConversation returns a conversation with empty memory and no persona.
func NewConversation(id string, client Completer, composer *ai.PromptComposer, maxTurns int, metrics *observability.Metrics) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{
		id:         id,
		client:     client,
		composer:   composer,
		metrics:    metrics,
		persona:    persona.None,
		system:     composer.Compose(persona.None),
		memory:     NewMemory(maxTurns),
		createdAt:  now,
		lastActive: now,
	}
	c.seen.Store(now.UnixNano())
	return c
}

// ID returns the session identifier.
func (c *Conversation) ID() string {
	return c.id
}

// SetPersona switches the overlay and recomposes the system instruction.
// Memory is left untouched.
func (c *Conversation) SetPersona(p persona.Persona) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", persona.ErrUnknownPersona, string(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persona == p {
		return nil
	}
	c.persona = p
	c.system = c.composer.Compose(p)
	return nil
}

// Persona returns the active persona.
func (c *Conversation) Persona() persona.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persona
}

// SystemInstruction returns the instruction sent with the next request.
func (c *Conversation) SystemInstruction() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.system
}

// GetResponse sends the system instruction, the prior turns and userText in
// one request. Memory is appended only after a successful reply.
func (c *Conversation) GetResponse(ctx context.Context, userText string) (string, error) {
	return c.exchange(ctx, userText, func(p ai.Prompt) (string, error) {
		return c.client.Complete(ctx, p)
	})
}

// StreamResponse behaves like GetResponse but forwards reply chunks to
// onDelta as they arrive. Chunks of a failed stream are never recorded.
func (c *Conversation) StreamResponse(ctx context.Context, userText string, onDelta func(string)) (string, error) {
	return c.exchange(ctx, userText, func(p ai.Prompt) (string, error) {
		return c.client.Stream(ctx, p, onDelta)
	})
}

func (c *Conversation) exchange(ctx context.Context, userText string, call func(ai.Prompt) (string, error)) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidInput)
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return "", errConversationClosed
	}

	reply, err := call(ai.Prompt{
		System:  c.system,
		History: c.memory.Context(),
		Query:   userText,
	})
	if err != nil {
		return "", asUpstream(err)
	}

	evicted := c.memory.Append(chat.UserTurn(userText), chat.AssistantTurn(reply))
	c.metrics.AddEvicted(evicted)
	c.lastActive = time.Now().UTC()
	return reply, nil
}

// History returns a copy of the recorded turns.
func (c *Conversation) History() []chat.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memory.Snapshot()
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memory.Len()
}

// Clear erases the conversation history. The persona is kept.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory.Clear()
}

// close clears the history and rejects later exchanges. It waits for an
// exchange already holding the conversation to finish.
func (c *Conversation) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed.Store(true)
	c.memory.Clear()
}

func (c *Conversation) touch(now time.Time) {
	c.seen.Store(now.UnixNano())
}

// idle reports whether nothing has looked the conversation up since cutoff
// and no exchange is running or waiting on it.
func (c *Conversation) idle(cutoff time.Time) bool {
	if c.inflight.Load() > 0 {
		return false
	}
	return c.seen.Load() <= cutoff.UnixNano()
}

// Snapshot returns a serializable copy of the conversation.
func (c *Conversation) Snapshot() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return chat.Session{
		ID:           c.id,
		Persona:      c.persona,
		Turns:        c.memory.Snapshot(),
		CreatedAt:    c.createdAt,
		LastActiveAt: c.lastActive,
	}
}
