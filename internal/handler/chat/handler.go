package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	"github.com/KMohnishM/Deep-Shiva/internal/model/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	chatService "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
	"github.com/KMohnishM/Deep-Shiva/pkg/utils"
)

// Handler serves the JSON chat endpoints.
type Handler struct {
	chatSvc  *chatService.Service
	sessions *httpsession.Manager
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, sessions *httpsession.Manager) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		sessions: sessions,
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleStartSession)
	r.Post("/chat", h.handleChat)
	r.Post("/clear", h.handleClear)
	r.Get("/history", h.handleHistory)
}

// MessageRequest is the body of POST /api/chat and /api/chat/stream.
// Persona is a pointer so that an absent field keeps the session's persona.
type MessageRequest struct {
	Message   string  `json:"message"`
	Persona   *string `json:"persona"`
	SessionID string  `json:"sessionId"`
}

// ParsePersona returns nil when no persona was sent.
func (m MessageRequest) ParsePersona() (*persona.Persona, error) {
	if m.Persona == nil {
		return nil, nil
	}
	p, err := persona.Parse(*m.Persona)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MessageResponse is the reply of POST /api/chat.
type MessageResponse struct {
	Response  string          `json:"response"`
	HasAudio  bool            `json:"has_audio"`
	SessionID string          `json:"sessionId"`
	Persona   persona.Persona `json:"persona"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`
}

type historyResponse struct {
	SessionID string          `json:"sessionId"`
	Persona   persona.Persona `json:"persona"`
	Turns     []chat.Turn     `json:"turns"`
}

// DecodeOptional decodes a JSON body into dst, accepting an empty body.
func DecodeOptional(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := DecodeOptional(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requested := h.sessions.Resolve(r, payload.SessionID)
	id, err := h.chatSvc.StartOrResume(r.Context(), requested)
	if err != nil {
		status, message := ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	h.sessions.Bind(w, r, id)
	utils.RespondJSON(w, http.StatusOK, sessionResponse{
		SessionID: id,
		Resumed:   requested != "" && requested == id,
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := payload.ParsePersona()
	if err != nil {
		status, message := ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	reply, err := h.chatSvc.SendMessage(r.Context(), h.sessions.Resolve(r, payload.SessionID), payload.Message, p)
	if err != nil {
		status, message := ErrorStatus(err)
		if status == http.StatusBadGateway {
			// The session exists; the client should resume it on retry.
			h.sessions.Bind(w, r, reply.SessionID)
		}
		if status >= http.StatusInternalServerError {
			hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("chat request failed")
		}
		utils.RespondError(w, status, message)
		return
	}

	h.sessions.Bind(w, r, reply.SessionID)
	utils.RespondJSON(w, http.StatusOK, MessageResponse{
		Response:  reply.Text,
		HasAudio:  reply.HasAudioHint,
		SessionID: reply.SessionID,
		Persona:   reply.Persona,
	})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := DecodeOptional(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := h.sessions.Resolve(r, payload.SessionID)
	if err := h.chatSvc.ClearSession(r.Context(), id); err != nil {
		status, message := ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	h.sessions.Release(w, id)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Resolve(r, r.URL.Query().Get("sessionId"))
	if id == "" {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	session, err := h.chatSvc.History(id)
	if err != nil {
		status, message := ErrorStatus(err)
		utils.RespondError(w, status, message)
		return
	}

	h.sessions.Touch(id)
	utils.RespondJSON(w, http.StatusOK, historyResponse{
		SessionID: session.ID,
		Persona:   session.Persona,
		Turns:     session.Turns,
	})
}
