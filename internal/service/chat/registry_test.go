package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/Deep-Shiva/internal/observability"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
)

func countingFactory(created *atomic.Int32) Factory {
	composer := ai.NewPromptComposer()
	return func(_ context.Context, id string) (*Conversation, error) {
		created.Add(1)
		return NewConversation(id, nil, composer, 0, nil), nil
	}
}

func TestRegistryGetOrCreateReturnsSingleInstance(t *testing.T) {
	var created atomic.Int32
	registry := NewRegistry(countingFactory(&created), nil)

	const workers = 32
	results := make([]*Conversation, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, _, err := registry.GetOrCreate(context.Background(), "shared")
			if err == nil {
				results[i] = conv
			}
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, conv := range results {
		assert.Same(t, results[0], conv)
	}
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryFactoryErrorLeavesNoEntry(t *testing.T) {
	boom := errors.New("boom")
	registry := NewRegistry(func(context.Context, string) (*Conversation, error) {
		return nil, boom
	}, nil)

	_, _, err := registry.GetOrCreate(context.Background(), "id")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, registry.Len())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	var created atomic.Int32
	registry := NewRegistry(countingFactory(&created), nil)

	_, _, err := registry.GetOrCreate(context.Background(), "id")
	require.NoError(t, err)

	assert.True(t, registry.Remove("id"))
	assert.False(t, registry.Remove("id"))
	assert.False(t, registry.Remove("never-existed"))
	_, ok := registry.Get("id")
	assert.False(t, ok)
}

func TestRegistrySweepKeepsLiveIDs(t *testing.T) {
	var created atomic.Int32
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := NewRegistry(countingFactory(&created), metrics)

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := registry.GetOrCreate(context.Background(), id)
		require.NoError(t, err)
	}

	removed := registry.Sweep(map[string]struct{}{"b": {}, "unknown": {}}, 0)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b"}, registry.IDs())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SessionsSwept))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveSessions))
}

func TestRegistrySweepHonoursIdleWindow(t *testing.T) {
	var created atomic.Int32
	registry := NewRegistry(countingFactory(&created), nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	_, _, err := registry.GetOrCreate(context.Background(), "old")
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)
	_, _, err = registry.GetOrCreate(context.Background(), "fresh")
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, registry.Sweep(nil, time.Hour))
	assert.Equal(t, []string{"fresh"}, registry.IDs())

	// A lookup counts as activity.
	now = now.Add(50 * time.Minute)
	_, ok := registry.Get("fresh")
	require.True(t, ok)
	now = now.Add(20 * time.Minute)
	assert.Zero(t, registry.Sweep(nil, time.Hour))
}

func TestRegistrySweepSkipsBusyAndClosesRemoved(t *testing.T) {
	var created atomic.Int32
	registry := NewRegistry(countingFactory(&created), nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	busy, _, err := registry.GetOrCreate(context.Background(), "busy")
	require.NoError(t, err)
	quiet, _, err := registry.GetOrCreate(context.Background(), "quiet")
	require.NoError(t, err)

	busy.inflight.Add(1)
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, registry.Sweep(nil, time.Hour))
	assert.Equal(t, []string{"busy"}, registry.IDs())

	_, err = quiet.GetResponse(context.Background(), "still there?")
	assert.ErrorIs(t, err, errConversationClosed)
	assert.Zero(t, quiet.Len())
}
