package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	"github.com/KMohnishM/Deep-Shiva/pkg/utils"
)

// Handler lists the selectable personas.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes mounts GET /personas on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
