package ai

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/mocks"
	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/observability"
)

func newTestClient(t *testing.T, scripted *mocks.ScriptedModel, cfg ClientConfig) (*Client, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client, err := NewClient(context.Background(), scripted, cfg, metrics, zerolog.Nop())
	require.NoError(t, err)
	return client, metrics
}

func TestCompleteSendsSystemHistoryAndQuery(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "Namaste!"})
	client, metrics := newTestClient(t, scripted, ClientConfig{Provider: "azure", Timeout: time.Second})

	history := []chat.Turn{chat.UserTurn("Hi"), chat.AssistantTurn("Hello ji")}
	reply, err := client.Complete(context.Background(), Prompt{
		System:  "system text",
		History: slices.Values(history),
		Query:   "Plan a trip",
	})
	require.NoError(t, err)
	assert.Equal(t, "Namaste!", reply)

	input := scripted.LastCall()
	require.Len(t, input, 4)
	assert.Equal(t, schema.System, input[0].Role)
	assert.Equal(t, "system text", input[0].Content)
	assert.Equal(t, schema.User, input[1].Role)
	assert.Equal(t, "Hi", input[1].Content)
	assert.Equal(t, schema.Assistant, input[2].Role)
	assert.Equal(t, "Hello ji", input[2].Content)
	assert.Equal(t, schema.User, input[3].Role)
	assert.Equal(t, "Plan a trip", input[3].Content)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CompletionsTotal.WithLabelValues("azure", "success")))
}

func TestCompleteWithoutHistory(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "ok"})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: time.Second})

	_, err := client.Complete(context.Background(), Prompt{System: "s", Query: "q"})
	require.NoError(t, err)
	assert.Len(t, scripted.LastCall(), 2)
}

func TestCompleteWrapsFailures(t *testing.T) {
	cause := errors.New("401 invalid api key sk-secret")
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Err: cause})
	client, metrics := newTestClient(t, scripted, ClientConfig{Provider: "azure", Timeout: time.Second})

	_, err := client.Complete(context.Background(), Prompt{System: "s", Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "azure", upstream.Provider)
	assert.False(t, upstream.Timeout())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CompletionsTotal.WithLabelValues("azure", "error")))
}

func TestCompleteRejectsEmptyCompletion(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "   "})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: time.Second})

	_, err := client.Complete(context.Background(), Prompt{System: "s", Query: "q"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, errEmptyCompletion)
}

func TestCompleteTimesOut(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "late", Delay: time.Second})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: 20 * time.Millisecond})

	_, err := client.Complete(context.Background(), Prompt{System: "s", Query: "q"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.True(t, upstream.Timeout())
}

func TestStreamDeliversDeltas(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Chunks: []string{"Nama", "ste! ", "[AUDIO]"}})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: time.Second, Streaming: true})

	var deltas []string
	reply, err := client.Stream(context.Background(), Prompt{System: "s", Query: "q"}, func(delta string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)
	assert.Equal(t, "Namaste! [AUDIO]", reply)
	assert.Equal(t, []string{"Nama", "ste! ", "[AUDIO]"}, deltas)
	assert.True(t, HasAudioHint(reply))
}

func TestStreamMidwayFailure(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{
		Chunks:    []string{"partial"},
		StreamErr: errors.New("connection reset"),
	})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: time.Second, Streaming: true})

	_, err := client.Stream(context.Background(), Prompt{System: "s", Query: "q"}, nil)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestStreamDisabledFallsBackToComplete(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "whole reply"})
	client, _ := newTestClient(t, scripted, ClientConfig{Timeout: time.Second})

	called := false
	reply, err := client.Stream(context.Background(), Prompt{System: "s", Query: "q"}, func(string) { called = true })
	require.NoError(t, err)
	assert.Equal(t, "whole reply", reply)
	assert.False(t, called)
}

func TestLazyReturnsConfigurationErrorUntilFixed(t *testing.T) {
	lazy := NewLazy(config.AIConfig{Provider: config.ProviderAzure}, nil, zerolog.Nop())

	_, err := lazy.Client(context.Background())
	assert.ErrorIs(t, err, config.ErrConfiguration)

	scripted := mocks.NewScriptedModel()
	lazy.newModel = func(context.Context) (model.BaseChatModel, error) { return scripted, nil }

	first, err := lazy.Client(context.Background())
	require.NoError(t, err)
	second, err := lazy.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestUpstreamErrorMessageCarriesCause(t *testing.T) {
	err := &UpstreamError{Cause: errors.New("rate limited")}
	assert.True(t, strings.HasSuffix(err.Error(), "rate limited"))
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}
