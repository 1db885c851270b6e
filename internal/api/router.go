package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smark/internal/postservice"
)

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin; empty means "*".
	CORSOrigin string
	// StaticDir, if set, is served under /public.
	StaticDir string
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler
}

// NewRouter creates a chi router with the greeting, health checks, the
// /api routes and the static file tree.
func NewRouter(svc *postservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(cfg.CORSOrigin))

	r.Get("/", h.Hello)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Route("/api", func(r chi.Router) {
		// Posts.
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{uuid}", h.GetPost)
		r.Get("/posts/{lang}/{slug}", h.GetPostBySlug)

		// Search.
		r.Get("/search", h.Search)

		// Facets.
		r.Get("/tags", h.Tags)
		r.Get("/categories", h.Categories)

		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}
	})

	if cfg.StaticDir != "" {
		r.Get("/public/*", NewStaticHandler(cfg.StaticDir).ServeFile)
	}

	return r
}
