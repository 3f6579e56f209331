package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/observability"
)

// Prompt is everything one completion request carries: the system
// instruction, the prior turns in order, and the new user text.
type Prompt struct {
	System  string
	History iter.Seq[chat.Turn]
	Query   string
}

// ClientConfig tunes a Client.
type ClientConfig struct {
	Provider  string
	Timeout   time.Duration
	Streaming bool
}

// Client dispatches prompts to the hosted chat model through an eino chain.
type Client struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	cfg     ClientConfig
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewClient compiles the template + model chain around chatModel.
func NewClient(ctx context.Context, chatModel model.BaseChatModel, cfg ClientConfig, metrics *observability.Metrics, log zerolog.Logger) (*Client, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if cfg.Provider == "" {
		cfg.Provider = string(config.ProviderAzure)
	}

	return &Client{
		chain:   runnable,
		cfg:     cfg,
		metrics: metrics,
		log:     observability.Component(log, "ai"),
	}, nil
}

// StreamingEnabled reports whether Stream emits incremental deltas.
func (c *Client) StreamingEnabled() bool {
	return c.cfg.Streaming
}

// Complete sends p in full and returns the reply text. Any failure, including
// an empty completion, is returned as *UpstreamError.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	response, err := c.chain.Invoke(ctx, buildChainInput(p))
	if err == nil && (response == nil || strings.TrimSpace(response.Content) == "") {
		err = errEmptyCompletion
	}
	c.metrics.RecordCompletion(c.cfg.Provider, err, time.Since(start))
	if err != nil {
		return "", c.upstreamError(ctx, err)
	}

	c.log.Debug().Int("length", len(response.Content)).Dur("elapsed", time.Since(start)).Msg("completion received")
	return response.Content, nil
}

// Stream sends p and calls onDelta with each content chunk as it arrives,
// returning the concatenated reply. With streaming disabled it behaves like
// Complete and onDelta is not called.
func (c *Client) Stream(ctx context.Context, p Prompt, onDelta func(string)) (string, error) {
	if !c.cfg.Streaming {
		return c.Complete(ctx, p)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, err := c.stream(ctx, p, onDelta)
	c.metrics.RecordCompletion(c.cfg.Provider, err, time.Since(start))
	if err != nil {
		return "", c.upstreamError(ctx, err)
	}
	return text, nil
}

func (c *Client) stream(ctx context.Context, p Prompt, onDelta func(string)) (string, error) {
	reader, err := c.chain.Stream(ctx, buildChainInput(p))
	if err != nil {
		return "", err
	}
	defer reader.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", errEmptyCompletion
	}
	merged, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(merged.Content) == "" {
		return "", errEmptyCompletion
	}
	return merged.Content, nil
}

func (c *Client) upstreamError(ctx context.Context, cause error) *UpstreamError {
	return &UpstreamError{
		Provider: c.cfg.Provider,
		Cause:    cause,
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func buildChainInput(p Prompt) map[string]any {
	return map[string]any{
		"system":  p.System,
		"history": buildHistoryMessages(p.History),
		"query":   p.Query,
	}
}

func buildHistoryMessages(turns iter.Seq[chat.Turn]) []*schema.Message {
	if turns == nil {
		return nil
	}

	var history []*schema.Message
	for turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}

// Lazy builds the Client on first use and caches it. Configuration problems
// are returned on every call until the configuration is fixed, so a broken
// setup fails each session creation instead of half-initializing one.
type Lazy struct {
	mu       sync.Mutex
	cfg      config.AIConfig
	newModel func(context.Context) (model.BaseChatModel, error)
	metrics  *observability.Metrics
	log      zerolog.Logger
	client   *Client
}

// NewLazy returns a Lazy client source for cfg.
func NewLazy(cfg config.AIConfig, metrics *observability.Metrics, log zerolog.Logger) *Lazy {
	return &Lazy{
		cfg:      cfg,
		newModel: cfg.NewChatModel,
		metrics:  metrics,
		log:      log,
	}
}

// Client returns the shared Client, building it if needed.
func (l *Lazy) Client(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	chatModel, err := l.newModel(ctx)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(ctx, chatModel, ClientConfig{
		Provider:  l.cfg.ProviderName(),
		Timeout:   l.cfg.Timeout,
		Streaming: l.cfg.StreamResponse,
	}, l.metrics, l.log)
	if err != nil {
		return nil, &config.ConfigurationError{Kind: config.KindModelInit, Err: err}
	}

	l.client = client
	l.log.Info().Str("provider", l.cfg.ProviderName()).Str("deployment", l.cfg.Deployment).Msg("completion client initialized")
	return client, nil
}
