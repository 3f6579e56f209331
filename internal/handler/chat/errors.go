package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	chatService "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
)

const (
	MessageNoInput     = "No message provided"
	MessageUnavailable = "The assistant is unavailable right now. Please try again later."
	MessageUpstream    = "Failed to get response from AI. Please try again."
	MessageUnexpected  = "An unexpected error occurred. Please try again."
)

// ErrorStatus maps a chat service error onto an HTTP status and a message
// that is safe to show to end users. Upstream causes never leak into it.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrInvalidInput):
		return http.StatusBadRequest, MessageNoInput
	case errors.Is(err, persona.ErrUnknownPersona):
		return http.StatusBadRequest, unknownPersonaMessage()
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, chatService.ErrConfiguration):
		return http.StatusServiceUnavailable, MessageUnavailable
	case errors.Is(err, chatService.ErrUpstreamUnavailable):
		return http.StatusBadGateway, MessageUpstream
	default:
		return http.StatusInternalServerError, MessageUnexpected
	}
}

func unknownPersonaMessage() string {
	tags := []string{persona.None.String()}
	for _, p := range persona.All() {
		tags = append(tags, p.String())
	}
	return "Unknown persona, expected one of: " + strings.Join(tags, ", ")
}
