// Package api implements the smark read-only REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware grants origin read access to the API and answers preflight
// requests. An empty origin allows any origin.
func CORSMiddleware(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
