// Package index stores posts in a bleve full-text index and keeps that
// index consistent with a vault of Markdown files.
package index

import (
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// Reader is the read side of the index used by the HTTP and MCP layers.
// Consumers should depend on this interface rather than *Engine to
// facilitate testing with fakes.
type Reader interface {
	Catalog() *schema.Catalog
	LookupByUUID(uuid string) (schema.Document, error)
	LookupBySlugAndLang(slug string, l lang.Lang) (schema.Document, error)
	Filter(terms Terms, orderBy *schema.PostField) ([]schema.Document, error)
	Search(text string, fields []schema.PostField, limit int) ([]schema.Document, error)
	Facets() (tags, categories []string, err error)
	Count() (uint64, error)
}

// Verify *Engine satisfies Reader at compile time.
var _ Reader = (*Engine)(nil)
