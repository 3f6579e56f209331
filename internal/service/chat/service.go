package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/observability"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
)

// maxClosedRetries bounds how often one message moves to a fresh session
// after its session was closed underneath it.
const maxClosedRetries = 2

// ClientSource yields the completion client for a new session. It fails with
// a configuration error when the client cannot be built.
type ClientSource func(ctx context.Context) (Completer, error)

// FromLazy adapts a lazily built ai client to a ClientSource.
func FromLazy(lazy *ai.Lazy) ClientSource {
	return func(ctx context.Context) (Completer, error) {
		client, err := lazy.Client(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Options tunes a Service.
type Options struct {
	// MaxTurns caps each session's memory; 0 keeps every turn.
	MaxTurns int
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	// NewID mints session ids. Defaults to random UUIDs.
	NewID func() string
}

// Reply is the outcome of one user message.
type Reply struct {
	SessionID    string
	Text         string
	HasAudioHint bool
	Persona      persona.Persona
}

// Service is the conversation core the gateway talks to.
type Service struct {
	registry *Registry
	clients  ClientSource
	composer *ai.PromptComposer
	maxTurns int
	metrics  *observability.Metrics
	log      zerolog.Logger
	newID    func() string
}

// NewService wires a registry whose sessions draw their client from clients.
func NewService(clients ClientSource, opts Options) *Service {
	s := &Service{
		clients:  clients,
		composer: ai.NewPromptComposer(),
		maxTurns: opts.MaxTurns,
		metrics:  opts.Metrics,
		log:      observability.Component(opts.Logger, "chat"),
		newID:    opts.NewID,
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.registry = NewRegistry(s.newConversation, opts.Metrics)
	return s
}

func (s *Service) newConversation(ctx context.Context, id string) (*Conversation, error) {
	if s.clients == nil {
		return nil, &config.ConfigurationError{Kind: config.KindModelInit, Err: errors.New("no completion client configured")}
	}

	client, err := s.clients(ctx)
	if err != nil {
		if !errors.Is(err, ErrConfiguration) {
			err = &config.ConfigurationError{Kind: config.KindModelInit, Err: err}
		}
		return nil, err
	}
	return NewConversation(id, client, s.composer, s.maxTurns, s.metrics), nil
}

// Registry exposes the underlying session registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartOrResume returns id when it names a live session. Otherwise a fresh
// session is created under a newly minted id; caller supplied ids that are
// unknown are never adopted.
func (s *Service) StartOrResume(ctx context.Context, id string) (string, error) {
	conv, err := s.resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return conv.ID(), nil
}

func (s *Service) resolve(ctx context.Context, id string) (*Conversation, error) {
	if id != "" {
		if conv, ok := s.registry.Get(id); ok {
			return conv, nil
		}
	}

	conv, created, err := s.registry.GetOrCreate(ctx, s.newID())
	if err != nil {
		s.log.Error().Err(err).Msg("session creation failed")
		return nil, err
	}
	if created {
		s.log.Debug().Str("session_id", conv.ID()).Msg("session started")
	}
	return conv, nil
}

// SendMessage records one exchange on the session. A nil persona keeps the
// session's current one. The returned Reply always carries the session id
// that was used, even on failure.
func (s *Service) SendMessage(ctx context.Context, id, text string, p *persona.Persona) (Reply, error) {
	return s.send(ctx, id, text, p, func(conv *Conversation) (string, error) {
		return conv.GetResponse(ctx, text)
	})
}

// StreamMessage is SendMessage with reply chunks forwarded to onDelta.
func (s *Service) StreamMessage(ctx context.Context, id, text string, p *persona.Persona, onDelta func(string)) (Reply, error) {
	return s.send(ctx, id, text, p, func(conv *Conversation) (string, error) {
		return conv.StreamResponse(ctx, text, onDelta)
	})
}

func (s *Service) send(ctx context.Context, id, text string, p *persona.Persona, call func(*Conversation) (string, error)) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{SessionID: id}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if p != nil && !p.Valid() {
		return Reply{SessionID: id}, fmt.Errorf("%w: %q", persona.ErrUnknownPersona, string(*p))
	}

	var conv *Conversation
	var reply string
	for attempt := 0; ; attempt++ {
		var err error
		conv, err = s.resolve(ctx, id)
		if err != nil {
			return Reply{SessionID: id}, err
		}

		if p != nil {
			if err := conv.SetPersona(*p); err != nil {
				return Reply{SessionID: conv.ID()}, err
			}
		}

		reply, err = call(conv)
		if errors.Is(err, errConversationClosed) && attempt < maxClosedRetries {
			// Cleared or swept while queued; continue in a fresh session.
			s.log.Debug().Str("session_id", conv.ID()).Msg("session closed during request")
			id = ""
			continue
		}
		if err != nil {
			s.logFailure(conv, err)
			return Reply{SessionID: conv.ID(), Persona: conv.Persona()}, err
		}
		break
	}

	return Reply{
		SessionID:    conv.ID(),
		Text:         reply,
		HasAudioHint: ai.HasAudioHint(reply),
		Persona:      conv.Persona(),
	}, nil
}

func (s *Service) logFailure(conv *Conversation, err error) {
	event := s.log.Error()
	var upstream *ai.UpstreamError
	if errors.As(err, &upstream) {
		event = event.Bool("timeout", upstream.Timeout()).Str("provider", upstream.Provider)
	}
	event.Err(err).
		Str("session_id", conv.ID()).
		Str("persona", conv.Persona().String()).
		Msg("completion failed")
}

// ClearSession erases the session's history and drops it from the registry.
// An exchange already running on the session finishes first; one still
// waiting moves to a fresh session. Clearing an unknown id is acknowledged.
func (s *Service) ClearSession(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	if conv, ok := s.registry.Get(id); ok {
		conv.close()
		s.registry.Remove(id)
		s.log.Debug().Str("session_id", id).Msg("session cleared")
	}
	return nil
}

// History returns a snapshot of a live session.
func (s *Service) History(id string) (chat.Session, error) {
	conv, ok := s.registry.Get(id)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return conv.Snapshot(), nil
}

// Sweep drops every session not named in live that has been idle for
// longer than idle.
func (s *Service) Sweep(live map[string]struct{}, idle time.Duration) int {
	removed := s.registry.Sweep(live, idle)
	if removed > 0 {
		s.log.Info().Int("removed", removed).Int("remaining", s.registry.Len()).Msg("expired sessions swept")
	}
	return removed
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.registry.Len()
}
