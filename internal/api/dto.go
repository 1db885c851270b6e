package api

import (
	"github.com/starford/smark/internal/postservice"
	"github.com/starford/smark/internal/schema"
)

// Post is the public JSON shape of a post (aliased from the schema layer).
type Post = schema.PostView

// PostListResponse wraps paginated post listings.
type PostListResponse = postservice.ListResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []Post `json:"results" validate:"required"`
}

// HealthResponse is returned by the health checks.
type HealthResponse struct {
	Status string `json:"status" example:"ok" validate:"required"`
}
