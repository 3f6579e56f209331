package stream

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	chatHandler "github.com/KMohnishM/Deep-Shiva/internal/handler/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	chatService "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
	"github.com/KMohnishM/Deep-Shiva/pkg/utils"
)

// Handler streams assistant replies as Server-Sent Events.
type Handler struct {
	chatSvc  *chatService.Service
	sessions *httpsession.Manager
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, sessions *httpsession.Manager) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		sessions: sessions,
	}
}

// RegisterRoutes mounts POST /chat/stream on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

// StreamResponse is the data payload of every event.
type StreamResponse struct {
	Event     string          `json:"event"`
	Content   string          `json:"content,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Persona   persona.Persona `json:"persona,omitempty"`
	HasAudio  bool            `json:"has_audio,omitempty"`
	Finished  bool            `json:"finished,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var payload chatHandler.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := payload.ParsePersona()
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, chatHandler.MessageNoInput)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	sessionID, err := h.chatSvc.StartOrResume(ctx, h.sessions.Resolve(r, payload.SessionID))
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	h.sessions.Bind(w, r, sessionID)
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log := hlog.FromRequest(r).With().Str("session_id", sessionID).Logger()
	h.send(w, flusher, log, StreamResponse{Event: "start", SessionID: sessionID})

	reply, err := h.chatSvc.StreamMessage(ctx, sessionID, payload.Message, p, func(delta string) {
		h.send(w, flusher, log, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		_, message := chatHandler.ErrorStatus(err)
		h.send(w, flusher, log, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     message,
		})
		return
	}

	h.send(w, flusher, log, StreamResponse{
		Event:     "message",
		SessionID: reply.SessionID,
		Content:   reply.Text,
		Persona:   reply.Persona,
		HasAudio:  reply.HasAudioHint,
	})
	h.send(w, flusher, log, StreamResponse{
		Event:     "end",
		SessionID: reply.SessionID,
		Finished:  true,
	})
	log.Debug().Int("length", len(reply.Text)).Msg("stream completed")
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, log zerolog.Logger, response StreamResponse) {
	if err := utils.SendSSEEvent(w, flusher, response.Event, response); err != nil {
		log.Debug().Err(err).Str("event", response.Event).Msg("sse write failed")
	}
}
