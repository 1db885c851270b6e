// Package postservice is the read-side domain layer shared by the HTTP API
// and the MCP server: parameter validation, pagination, JSON projection and
// the facets cache.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/index"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// DefaultSearchLimit is used when a search names no limit.
const DefaultSearchLimit = 10

// MaxLimit caps page and search sizes.
const MaxLimit = 1000

// Sort orders for ListParams.Order.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Facets are the distinct tags and categories of all posts.
type Facets struct {
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// ListParams selects and pages posts. Empty strings mean "no filter".
type ListParams struct {
	Lang     string
	Category string
	Tag      string
	OrderBy  string // created_at or updated_at
	Order    string // asc or desc (default), only with OrderBy
	Offset   int
	Limit    int // 0 means all
}

// Validate validates the list parameters.
func (p *ListParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Lang, validation.In(langCodes()...)),
		validation.Field(&p.OrderBy, validation.In(schema.CreatedAt.Name(), schema.UpdatedAt.Name())),
		validation.Field(&p.Order, validation.In(OrderAsc, OrderDesc)),
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Min(0), validation.Max(MaxLimit)),
	)
}

// ListResult is one page of posts plus the size of the whole selection.
type ListResult struct {
	Posts []schema.PostView `json:"posts"`
	Total int               `json:"total"`
}

// Service answers post queries from an index.
type Service struct {
	idx    index.Reader
	facets atomic.Pointer[Facets]
}

// NewService creates a new post service.
func NewService(idx index.Reader) *Service {
	return &Service{idx: idx}
}

// ListPosts returns the posts matching p, paged.
func (s *Service) ListPosts(_ context.Context, p ListParams) (*ListResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	terms := index.Terms{}
	if p.Lang != "" {
		terms[schema.Lang] = p.Lang
	}
	if p.Category != "" {
		terms[schema.Category] = p.Category
	}
	if p.Tag != "" {
		terms[schema.Tags] = p.Tag
	}

	var orderBy *schema.PostField
	if p.OrderBy != "" {
		f, err := schema.ParseField(p.OrderBy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		orderBy = &f
	}

	docs, err := s.idx.Filter(terms, orderBy)
	if err != nil {
		return nil, err
	}
	if orderBy != nil && p.Order == OrderAsc {
		slices.Reverse(docs)
	}

	total := len(docs)
	docs = page(docs, p.Offset, p.Limit)
	views, err := s.views(docs)
	if err != nil {
		return nil, err
	}
	return &ListResult{Posts: views, Total: total}, nil
}

// GetPost returns the post with the given uuid.
func (s *Service) GetPost(_ context.Context, uuid string) (*schema.PostView, error) {
	doc, err := s.idx.LookupByUUID(uuid)
	if err != nil {
		return nil, err
	}
	return s.view(doc)
}

// GetPostBySlug returns the post with the given slug in the given language.
func (s *Service) GetPostBySlug(_ context.Context, code, slug string) (*schema.PostView, error) {
	l, err := lang.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	doc, err := s.idx.LookupBySlugAndLang(slug, l)
	if err != nil {
		return nil, err
	}
	return s.view(doc)
}

// Search ranks posts by free-text relevance over the searchable fields. An
// empty query returns the newest limit posts. A malformed query
// fails with apperr.ErrInvalidInput.
func (s *Service) Search(_ context.Context, query string, limit int) ([]schema.PostView, error) {
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d", apperr.ErrInvalidInput, MaxLimit)
	}

	if limit == 0 {
		return []schema.PostView{}, nil
	}

	var docs []schema.Document
	var err error
	if strings.TrimSpace(query) == "" {
		newest := schema.CreatedAt
		docs, err = s.idx.Filter(nil, &newest)
		docs = page(docs, 0, limit)
	} else {
		docs, err = s.idx.Search(query, nil, limit)
	}
	if errors.Is(err, index.ErrQuerySyntax) {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err != nil {
		return nil, err
	}
	return s.views(docs)
}

// Ready reports whether the index can be read.
func (s *Service) Ready(_ context.Context) error {
	_, err := s.idx.Count()
	return err
}

// Facets returns the cached facets, computing them on first use.
func (s *Service) Facets(_ context.Context) (Facets, error) {
	if f := s.facets.Load(); f != nil {
		return *f, nil
	}
	if err := s.RefreshFacets(); err != nil {
		return Facets{}, err
	}
	return *s.facets.Load(), nil
}

// RefreshFacets recomputes the facets from the index and swaps the cache.
func (s *Service) RefreshFacets() error {
	tags, cats, err := s.idx.Facets()
	if err != nil {
		return err
	}
	s.facets.Store(&Facets{Tags: tags, Categories: cats})
	return nil
}

func (s *Service) view(doc schema.Document) (*schema.PostView, error) {
	v, err := s.idx.Catalog().View(doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) views(docs []schema.Document) ([]schema.PostView, error) {
	out := make([]schema.PostView, 0, len(docs))
	for _, doc := range docs {
		v, err := s.idx.Catalog().View(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func langCodes() []any {
	all := lang.All()
	out := make([]any, 0, len(all))
	for _, l := range all {
		out = append(out, l.String())
	}
	return out
}
