package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	chatHandler "github.com/KMohnishM/Deep-Shiva/internal/handler/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	chatService "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler serves the realtime chat websocket.
type Handler struct {
	chatSvc  *chatService.Service
	sessions *httpsession.Manager
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(chatSvc *chatService.Service, sessions *httpsession.Manager) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts GET /ws on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage carries one user utterance.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage changes per-connection settings. Absent fields are left as they are.
type ConfigMessage struct {
	Persona    *string `json:"persona,omitempty"`
	StreamMode *bool   `json:"streamMode,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	// persona is applied with the next message; nil keeps the session's persona.
	persona    *persona.Persona
	streamMode bool
}

func newConnectionState(sessionID string) *connectionState {
	return &connectionState{
		sessionID:  sessionID,
		streamMode: true,
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r).With().Str("component", "websocket").Logger()

	sessionID, err := h.chatSvc.StartOrResume(r.Context(), h.sessions.Resolve(r, r.URL.Query().Get("sessionId")))
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		http.Error(w, message, status)
		return
	}
	h.sessions.Touch(sessionID)

	conn, err := h.upgrader.Upgrade(w, r, http.Header{httpsession.HeaderSessionID: []string{sessionID}})
	if err != nil {
		log.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	log = log.With().Str("session_id", sessionID).Logger()
	log.Debug().Msg("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	state := newConnectionState(sessionID)
	h.sendInfo(conn, log, state.sessionID, map[string]any{
		"type":       "connected",
		"streamMode": state.streamMode,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, conn, log, state, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleText(ctx, conn, log, state, msg.Data)
	case "config":
		h.handleConfig(conn, log, state, msg.Data)
	case "clear":
		h.handleClear(ctx, conn, log, state)
	default:
		h.sendError(conn, log, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleText(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, log, "invalid text payload")
		return
	}

	var onDelta func(string)
	if state.streamMode {
		onDelta = func(delta string) {
			h.sendInfo(conn, log, state.sessionID, map[string]any{
				"type": "ai_delta",
				"text": delta,
			})
		}
	}

	reply, err := h.chatSvc.StreamMessage(ctx, state.sessionID, text.Text, state.persona, onDelta)
	if reply.SessionID != "" {
		state.sessionID = reply.SessionID
		h.sessions.Touch(reply.SessionID)
	}
	if err != nil {
		_, message := chatHandler.ErrorStatus(err)
		h.sendError(conn, log, message)
		return
	}
	state.persona = nil

	h.sendInfo(conn, log, state.sessionID, map[string]any{
		"type":     "ai",
		"text":     reply.Text,
		"hasAudio": reply.HasAudioHint,
		"persona":  reply.Persona,
		"isFinal":  true,
	})
}

func (h *Handler) handleConfig(conn *websocket.Conn, log zerolog.Logger, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, log, "invalid config payload")
		return
	}

	if err := applyConfig(state, cfg); err != nil {
		_, message := chatHandler.ErrorStatus(err)
		h.sendError(conn, log, message)
		return
	}

	data := map[string]any{
		"type":       "config",
		"streamMode": state.streamMode,
	}
	if state.persona != nil {
		data["persona"] = *state.persona
	}
	h.sendInfo(conn, log, state.sessionID, data)
}

// applyConfig leaves state untouched when the persona is invalid.
func applyConfig(state *connectionState, cfg ConfigMessage) error {
	if cfg.Persona != nil {
		p, err := persona.Parse(*cfg.Persona)
		if err != nil {
			return err
		}
		state.persona = &p
	}
	if cfg.StreamMode != nil {
		state.streamMode = *cfg.StreamMode
	}
	return nil
}

func (h *Handler) handleClear(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, state *connectionState) {
	_ = h.chatSvc.ClearSession(ctx, state.sessionID)
	h.sessions.Tracker.Forget(state.sessionID)

	sessionID, err := h.chatSvc.StartOrResume(ctx, "")
	if err != nil {
		_, message := chatHandler.ErrorStatus(err)
		h.sendError(conn, log, message)
		return
	}
	state.sessionID = sessionID
	state.persona = nil
	h.sessions.Touch(sessionID)

	h.sendInfo(conn, log, sessionID, map[string]any{"type": "cleared"})
}

func (h *Handler) sendInfo(conn *websocket.Conn, log zerolog.Logger, sessionID string, data map[string]any) {
	h.write(conn, log, outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) sendError(conn *websocket.Conn, log zerolog.Logger, message string) {
	h.write(conn, log, outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) write(conn *websocket.Conn, log zerolog.Logger, msg outgoingMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("write failed")
	}
}

// pingLoop keeps idle connections alive. WriteControl may run alongside the
// reader loop's writes.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
