package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/mocks"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
	chatservice "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
)

func setup(t *testing.T, scripted *mocks.ScriptedModel, streaming bool) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	client, err := ai.NewClient(context.Background(), scripted, ai.ClientConfig{Timeout: time.Second, Streaming: streaming}, nil, zerolog.Nop())
	require.NoError(t, err)

	svc := chatservice.NewService(func(context.Context) (chatservice.Completer, error) {
		return client, nil
	}, chatservice.Options{Logger: zerolog.Nop()})

	r := chi.NewRouter()
	New(svc, httpsession.NewManager("sid", time.Hour)).RegisterRoutes(r)
	return r, svc
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event StreamResponse
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func eventNames(events []StreamResponse) []string {
	names := make([]string, 0, len(events))
	for _, event := range events {
		names = append(names, event.Event)
	}
	return names
}

func postStream(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStreamEmitsDeltasThenMessage(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Chunks: []string{"Nama", "ste! ", "[AUDIO]"}})
	r, svc := setup(t, scripted, true)

	resp := postStream(r, `{"message":"Hello","persona":"yoga"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	events := readEvents(t, resp.Body.String())
	assert.Equal(t, []string{"start", "delta", "delta", "delta", "message", "end"}, eventNames(events))

	message := events[4]
	assert.Equal(t, "Namaste! [AUDIO]", message.Content)
	assert.True(t, message.HasAudio)
	assert.Equal(t, "yoga", message.Persona.String())

	session, err := svc.History(events[0].SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Turns, 2)
}

func TestStreamDisabledSendsSingleMessage(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "whole reply"})
	r, _ := setup(t, scripted, false)

	resp := postStream(r, `{"message":"Hello"}`)
	events := readEvents(t, resp.Body.String())
	assert.Equal(t, []string{"start", "message", "end"}, eventNames(events))
	assert.Equal(t, "whole reply", events[1].Content)
}

func TestStreamFailureSendsErrorEvent(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{
		Chunks:    []string{"partial"},
		StreamErr: errors.New("connection reset by 10.0.0.7"),
	})
	r, svc := setup(t, scripted, true)

	resp := postStream(r, `{"message":"Hello"}`)
	events := readEvents(t, resp.Body.String())
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "error", last.Event)
	assert.NotContains(t, last.Error, "10.0.0.7")

	session, err := svc.History(events[0].SessionID)
	require.NoError(t, err)
	assert.Empty(t, session.Turns)
}

func TestStreamValidatesBeforeOpeningStream(t *testing.T) {
	scripted := mocks.NewScriptedModel()
	r, _ := setup(t, scripted, true)

	empty := postStream(r, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Equal(t, "application/json", empty.Header().Get("Content-Type"))

	unknown := postStream(r, `{"message":"hi","persona":"pirate"}`)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Zero(t, scripted.CallCount())
}
