package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/postservice"
)

// Greeting is the body of GET /.
const Greeting = "Hello, Smark!"

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperr.ErrInvalidInput, name)
	}
	return n, nil
}

// Hello handles GET /.
func (h *Handler) Hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Greeting))
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts with optional filters, ordering and pagination
//	@Tags			posts
//	@Produce		json
//	@Param			lang		query		string	false	"Language"	Enums(ja, en)
//	@Param			category	query		string	false	"Category"
//	@Param			tag			query		string	false	"Tag"
//	@Param			order_by	query		string	false	"Date field"	Enums(created_at, updated_at)
//	@Param			order		query		string	false	"Direction"	Enums(asc, desc)
//	@Param			offset		query		int		false	"Page offset"
//	@Param			limit		query		int		false	"Page size"
//	@Success		200			{object}	PostListResponse
//	@Failure		400			{object}	errResponse
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, r, "list posts", err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, r, "list posts", err)
		return
	}

	res, err := h.svc.ListPosts(r.Context(), postservice.ListParams{
		Lang:     q.Get("lang"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		OrderBy:  q.Get("order_by"),
		Order:    q.Get("order"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, r, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetPost handles GET /api/posts/{uuid}.
//
//	@Summary		Get a single post by uuid
//	@Tags			posts
//	@Produce		json
//	@Param			uuid	path		string	true	"Post uuid"
//	@Success		200		{object}	Post
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{uuid} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, r, "get post", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPostBySlug handles GET /api/posts/{lang}/{slug}.
//
//	@Summary		Get a single post by language and slug
//	@Tags			posts
//	@Produce		json
//	@Param			lang	path		string	true	"Language"	Enums(ja, en)
//	@Param			slug	path		string	true	"Slug"
//	@Success		200		{object}	Post
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{lang}/{slug} [get]
func (h *Handler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPostBySlug(r.Context(), chi.URLParam(r, "lang"), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, "get post by slug", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			query	query		string	false	"Search query; empty lists the first posts"
//	@Param			limit	query		int		false	"Max results"	default(10)
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", postservice.DefaultSearchLimit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Tags handles GET /api/tags.
//
//	@Summary		List distinct tags
//	@Tags			facets
//	@Produce		json
//	@Success		200	{array}	string
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Facets(r.Context())
	if err != nil {
		writeError(w, r, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, f.Tags)
}

// Categories handles GET /api/categories.
//
//	@Summary		List distinct categories
//	@Tags			facets
//	@Produce		json
//	@Success		200	{array}	string
//	@Router			/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Facets(r.Context())
	if err != nil {
		writeError(w, r, "categories", err)
		return
	}
	writeJSON(w, http.StatusOK, f.Categories)
}
