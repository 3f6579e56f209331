// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS allows browser clients from allowedOrigins, a comma separated list
// ("*" or empty for any origin). Credentialed requests, and with them the
// session cookie, are only allowed when every origin is named explicitly.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins, wildcard := splitOrigins(allowedOrigins)
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Session-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

func splitOrigins(raw string) ([]string, bool) {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return []string{"*"}, true
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return []string{"*"}, true
	}
	return origins, false
}
