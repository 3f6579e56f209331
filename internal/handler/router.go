package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/KMohnishM/Deep-Shiva/internal/handler/chat"
	"github.com/KMohnishM/Deep-Shiva/internal/handler/persona"
	"github.com/KMohnishM/Deep-Shiva/internal/handler/socket"
	"github.com/KMohnishM/Deep-Shiva/internal/handler/stream"
	"github.com/KMohnishM/Deep-Shiva/internal/httpsession"
	middlewarePkg "github.com/KMohnishM/Deep-Shiva/internal/middleware"
	personaModel "github.com/KMohnishM/Deep-Shiva/internal/model/persona"
	chatService "github.com/KMohnishM/Deep-Shiva/internal/service/chat"
	"github.com/KMohnishM/Deep-Shiva/pkg/utils"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	Personas      personaModel.Store
	Chat          *chatService.Service
	Sessions      *httpsession.Manager
	Metrics       http.Handler
	Logger        zerolog.Logger
	AllowedOrigin string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.AccessLog(deps.Logger)...)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"message": "Deep Shiva is running!",
		})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		chat.New(deps.Chat, deps.Sessions).RegisterRoutes(api)
		stream.New(deps.Chat, deps.Sessions).RegisterRoutes(api)
		socket.New(deps.Chat, deps.Sessions).RegisterRoutes(api)
	})

	return r
}
