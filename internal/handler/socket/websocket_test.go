package socket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/mocks"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
	chatservice "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

type frame struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Data      map[string]any `json:"data"`
}

func dial(t *testing.T, scripted *mocks.ScriptedModel) (*websocket.Conn, *chatservice.Service) {
	t.Helper()
	client, err := ai.NewClient(context.Background(), scripted, ai.ClientConfig{Timeout: time.Second, Streaming: true}, nil, zerolog.Nop())
	require.NoError(t, err)
	svc := chatservice.NewService(func(context.Context) (chatservice.Completer, error) {
		return client, nil
	}, chatservice.Options{Logger: zerolog.Nop()})

	r := chi.NewRouter()
	New(svc, httpsession.NewManager("sid", time.Hour)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, svc
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, kind string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(inboundMessage{Type: kind, Data: raw}))
}

func TestApplyConfigUpdatesState(t *testing.T) {
	state := newConnectionState("session")

	require.NoError(t, applyConfig(state, ConfigMessage{Persona: strPtr("wellness"), StreamMode: boolPtr(false)}))
	require.NotNil(t, state.persona)
	assert.Equal(t, persona.Wellness, *state.persona)
	assert.False(t, state.streamMode)

	err := applyConfig(state, ConfigMessage{Persona: strPtr("chef"), StreamMode: boolPtr(true)})
	assert.ErrorIs(t, err, persona.ErrUnknownPersona)
	assert.Equal(t, persona.Wellness, *state.persona)
	assert.False(t, state.streamMode)
}

func TestSocketTextRoundTrip(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Chunks: []string{"Om ", "shanti"}})
	conn, svc := dial(t, scripted)

	connected := readFrame(t, conn)
	assert.Equal(t, "connected", connected.Data["type"])
	sessionID := connected.SessionID
	require.NotEmpty(t, sessionID)

	send(t, conn, "config", ConfigMessage{Persona: strPtr("mental")})
	cfg := readFrame(t, conn)
	assert.Equal(t, "config", cfg.Data["type"])
	assert.Equal(t, "mental", cfg.Data["persona"])

	send(t, conn, "text", TextMessage{Text: "I feel anxious"})
	assert.Equal(t, "ai_delta", readFrame(t, conn).Data["type"])
	assert.Equal(t, "ai_delta", readFrame(t, conn).Data["type"])

	final := readFrame(t, conn)
	assert.Equal(t, "ai", final.Data["type"])
	assert.Equal(t, "Om shanti", final.Data["text"])
	assert.Equal(t, "mental", final.Data["persona"])

	session, err := svc.History(sessionID)
	require.NoError(t, err)
	assert.Equal(t, persona.Mental, session.Persona)
	assert.Len(t, session.Turns, 2)
}

func TestSocketReportsErrors(t *testing.T) {
	scripted := mocks.NewScriptedModel()
	conn, _ := dial(t, scripted)
	readFrame(t, conn)

	send(t, conn, "text", TextMessage{Text: ""})
	assert.Equal(t, "error", readFrame(t, conn).Type)

	send(t, conn, "audio", map[string]string{})
	unsupported := readFrame(t, conn)
	assert.Equal(t, "error", unsupported.Type)
	assert.Contains(t, unsupported.Data["message"], "unsupported")
	assert.Zero(t, scripted.CallCount())
}

func TestSocketClearStartsFreshSession(t *testing.T) {
	scripted := mocks.NewScriptedModel(mocks.ScriptedReply{Content: "hello"})
	conn, svc := dial(t, scripted)
	first := readFrame(t, conn).SessionID

	send(t, conn, "clear", nil)
	cleared := readFrame(t, conn)
	assert.Equal(t, "cleared", cleared.Data["type"])
	assert.NotEqual(t, first, cleared.SessionID)

	_, err := svc.History(first)
	assert.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}
