package index

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// ErrQuerySyntax is returned when free-text search input cannot be parsed.
var ErrQuerySyntax = errors.New("index: malformed query")

// Terms maps raw fields to the exact value a document must hold.
type Terms map[schema.PostField]string

// LookupByUUID returns the post with the given uuid.
func (e *Engine) LookupByUUID(uuid string) (schema.Document, error) {
	docs, err := e.fetch(bleve.NewDocIDQuery([]string{uuid}), 1, nil)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("index: uuid %s: %w", uuid, apperr.ErrNotFound)
	}
	return docs[0], nil
}

// LookupBySlugAndLang returns the post with the given slug in the given
// language. Slugs are only unique within a language and compare
// case-sensitively, although the slug field is indexed lower-cased.
func (e *Engine) LookupBySlugAndLang(slug string, l lang.Lang) (schema.Document, error) {
	docs, err := e.Filter(Terms{schema.Slug: slug, schema.Lang: l.String()}, nil)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		stored, err := e.catalog.Text(doc, schema.Slug)
		if err != nil {
			return nil, err
		}
		if stored == slug {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("index: %s/%s: %w", l, slug, apperr.ErrNotFound)
}

// Filter returns every post matching all terms; no terms matches every
// post. When orderBy is set it must be a date field and the result is
// sorted newest first. A nil result means nothing matched.
func (e *Engine) Filter(terms Terms, orderBy *schema.PostField) ([]schema.Document, error) {
	q, err := e.termsQuery(terms)
	if err != nil {
		return nil, err
	}

	var sortBy []string
	if orderBy != nil {
		entry, err := e.catalog.Field(*orderBy)
		if err != nil {
			return nil, err
		}
		if entry.Kind != schema.KindDate {
			return nil, &schema.FieldError{Op: "order", Name: entry.Name, Err: schema.ErrWrongFieldKind}
		}
		sortBy = []string{"-" + entry.Name}
	}

	count, err := e.idx.Search(bleve.NewSearchRequestOptions(q, 0, 0, false))
	if err != nil {
		return nil, fmt.Errorf("index: count: %w", err)
	}
	if count.Total == 0 {
		return nil, nil
	}
	return e.fetch(q, int(count.Total), sortBy)
}

// Search parses text with the query-string syntax and returns at most
// limit posts ranked by relevance. Clauses without an explicit field are
// matched against fields, which must be prose fields; none means the
// catalog's searchable fields.
func (e *Engine) Search(text string, fields []schema.PostField, limit int) ([]schema.Document, error) {
	if limit <= 0 {
		return []schema.Document{}, nil
	}
	if len(fields) == 0 {
		fields = e.catalog.Searchable()
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		entry, err := e.catalog.Field(f)
		if err != nil {
			return nil, err
		}
		if entry.Kind != schema.KindProse {
			return nil, &schema.FieldError{Op: "search", Name: entry.Name, Err: schema.ErrWrongFieldKind}
		}
		names = append(names, entry.Name)
	}

	parsed, err := bleve.NewQueryStringQuery(strings.ToLower(text)).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuerySyntax, err)
	}
	docs, err := e.fetch(expandFields(parsed, names), limit, nil)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []schema.Document{}
	}
	return docs, nil
}

// Facets returns the sorted distinct tags and non-empty categories of all
// posts.
func (e *Engine) Facets() (tags, categories []string, err error) {
	docs, err := e.Filter(nil, nil)
	if err != nil {
		return nil, nil, err
	}
	tagSet := make(map[string]struct{})
	catSet := make(map[string]struct{})
	for _, doc := range docs {
		ts, err := e.catalog.Tags(doc)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range ts {
			tagSet[t] = struct{}{}
		}
		c, err := e.catalog.Text(doc, schema.Category)
		if err != nil {
			return nil, nil, err
		}
		if c != "" {
			catSet[c] = struct{}{}
		}
	}
	return sortedKeys(tagSet), sortedKeys(catSet), nil
}

func (e *Engine) termsQuery(terms Terms) (query.Query, error) {
	if len(terms) == 0 {
		return bleve.NewMatchAllQuery(), nil
	}
	fields := make([]schema.PostField, 0, len(terms))
	for f := range terms {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	conjuncts := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		entry, err := e.catalog.Field(f)
		if err != nil {
			return nil, err
		}
		if entry.Kind != schema.KindRaw {
			return nil, &schema.FieldError{Op: "filter", Name: entry.Name, Err: schema.ErrWrongFieldKind}
		}
		mq := bleve.NewMatchQuery(terms[f])
		mq.SetField(entry.Name)
		conjuncts = append(conjuncts, mq)
	}
	return bleve.NewConjunctionQuery(conjuncts...), nil
}

func (e *Engine) fetch(q query.Query, size int, sortBy []string) ([]schema.Document, error) {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{"*"}
	if len(sortBy) > 0 {
		req.SortBy(sortBy)
	}
	res, err := e.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	docs := make([]schema.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		docs = append(docs, schema.Document(hit.Fields))
	}
	return docs, nil
}

// expandFields rewrites leaf clauses that name no field into a disjunction
// of the same clause over each of fields.
func expandFields(q query.Query, fields []string) query.Query {
	switch v := q.(type) {
	case *query.BooleanQuery:
		if v.Must != nil {
			v.Must = expandFields(v.Must, fields)
		}
		if v.Should != nil {
			v.Should = expandFields(v.Should, fields)
		}
		if v.MustNot != nil {
			v.MustNot = expandFields(v.MustNot, fields)
		}
		return v
	case *query.ConjunctionQuery:
		for i, c := range v.Conjuncts {
			v.Conjuncts[i] = expandFields(c, fields)
		}
		return v
	case *query.DisjunctionQuery:
		for i, d := range v.Disjuncts {
			v.Disjuncts[i] = expandFields(d, fields)
		}
		return v
	case *query.MatchQuery:
		return perField(v, fields, cloneWithField[query.MatchQuery])
	case *query.MatchPhraseQuery:
		return perField(v, fields, cloneWithField[query.MatchPhraseQuery])
	case *query.PrefixQuery:
		return perField(v, fields, cloneWithField[query.PrefixQuery])
	case *query.WildcardQuery:
		return perField(v, fields, cloneWithField[query.WildcardQuery])
	case *query.RegexpQuery:
		return perField(v, fields, cloneWithField[query.RegexpQuery])
	case *query.FuzzyQuery:
		return perField(v, fields, cloneWithField[query.FuzzyQuery])
	case *query.TermQuery:
		return perField(v, fields, cloneWithField[query.TermQuery])
	}
	return q
}

func perField[PT query.FieldableQuery](q PT, fields []string, clone func(PT, string) query.Query) query.Query {
	if q.Field() != "" {
		return q
	}
	clauses := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		clauses = append(clauses, clone(q, f))
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

func cloneWithField[T any, PT interface {
	*T
	query.FieldableQuery
}](q PT, field string) query.Query {
	c := *q
	PT(&c).SetField(field)
	return PT(&c)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
