// Package frontmatter parses and writes the YAML header of a post.
//
// A post file starts with a "---" line, then YAML, then another "---" line,
// then the Markdown body. Keys are written in a fixed order so that rewritten
// files diff cleanly.
package frontmatter

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/lang"
)

// Keys as they appear in the YAML block.
const (
	KeyUUID        = "uuid"
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyLang        = "lang"
	KeyCategory    = "category"
	KeyTags        = "tags"
	KeyCreatedAt   = "created_at"
	KeyUpdatedAt   = "updated_at"
)

var (
	ErrNoFrontMatter  = errors.New("front matter block not found")
	ErrMissingField   = errors.New("required field is missing")
	ErrUnsupportedTag = errors.New("tag must be a string or an integer")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidField   = errors.New("invalid field value")
)

// Fields is the mutable construction form of a FrontMatter.
type Fields struct {
	UUID        string
	Title       string
	Description string
	Category    string
	Lang        lang.Lang
	Tags        []string
	CreatedAt   *datetime.DateTime
	UpdatedAt   *datetime.DateTime
}

// FrontMatter is an immutable post header. The zero value is not useful; use
// New, Parse or Replace.
type FrontMatter struct {
	uuid        string
	title       string
	description string
	category    string
	lang        lang.Lang
	tags        []string
	createdAt   *datetime.DateTime
	updatedAt   *datetime.DateTime
}

// New copies f into a FrontMatter. An empty Lang becomes lang.Default.
func New(f Fields) FrontMatter {
	l := f.Lang
	if l == "" {
		l = lang.Default
	}
	return FrontMatter{
		uuid:        f.UUID,
		title:       f.Title,
		description: f.Description,
		category:    f.Category,
		lang:        l,
		tags:        slices.Clone(f.Tags),
		createdAt:   copyDate(f.CreatedAt),
		updatedAt:   copyDate(f.UpdatedAt),
	}
}

// Template returns a header for a new post: fresh uuid, empty strings and,
// when withDate is set, both dates at the current second in notation f.
func Template(l lang.Lang, withDate bool, f datetime.Format) FrontMatter {
	fields := Fields{UUID: uuid.NewString(), Lang: l}
	if withDate {
		now := datetime.Now(f)
		fields.CreatedAt = &now
		fields.UpdatedAt = &now
	}
	return New(fields)
}

func (m FrontMatter) UUID() string        { return m.uuid }
func (m FrontMatter) Title() string       { return m.title }
func (m FrontMatter) Description() string { return m.description }
func (m FrontMatter) Category() string    { return m.category }
func (m FrontMatter) Lang() lang.Lang     { return m.lang }

// Tags returns a copy of the tag list; nil when the post has none.
func (m FrontMatter) Tags() []string { return slices.Clone(m.tags) }

// CreatedAt reports the creation date, if the header has one.
func (m FrontMatter) CreatedAt() (datetime.DateTime, bool) { return deref(m.createdAt) }

// UpdatedAt reports the last update date, if the header has one.
func (m FrontMatter) UpdatedAt() (datetime.DateTime, bool) { return deref(m.updatedAt) }

// Fields returns a detached copy of every field.
func (m FrontMatter) Fields() Fields {
	return Fields{
		UUID:        m.uuid,
		Title:       m.title,
		Description: m.description,
		Category:    m.category,
		Lang:        m.lang,
		Tags:        slices.Clone(m.tags),
		CreatedAt:   copyDate(m.createdAt),
		UpdatedAt:   copyDate(m.updatedAt),
	}
}

// WithTimestamps returns a copy carrying the given dates.
func (m FrontMatter) WithTimestamps(created, updated datetime.DateTime) FrontMatter {
	f := m.Fields()
	f.CreatedAt = &created
	f.UpdatedAt = &updated
	return New(f)
}

// EqualIgnoringTimestamps compares every field except created_at and
// updated_at. A missing tag list equals an empty one.
func EqualIgnoringTimestamps(a, b FrontMatter) bool {
	return a.uuid == b.uuid &&
		a.title == b.title &&
		a.description == b.description &&
		a.category == b.category &&
		a.lang == b.lang &&
		slices.Equal(a.tags, b.tags)
}

// Split separates the YAML between the delimiters from the body. The text
// must begin with "---\n"; the block ends at the next line holding only "---".
func Split(text string) (yamlText, body string, err error) {
	const open = "---\n"
	if !strings.HasPrefix(text, open) {
		return "", "", ErrNoFrontMatter
	}
	rest := text[len(open)-1:]
	idx := strings.Index(rest, "\n---\n")
	switch {
	case idx >= 0:
		return rest[1 : idx+1], rest[idx+len("\n---\n"):], nil
	case strings.HasSuffix(rest, "\n---"):
		idx = len(rest) - len("\n---")
		return rest[1 : idx+1], "", nil
	}
	return "", "", ErrNoFrontMatter
}

func deref(d *datetime.DateTime) (datetime.DateTime, bool) {
	if d == nil {
		return datetime.DateTime{}, false
	}
	return *d, true
}

func copyDate(d *datetime.DateTime) *datetime.DateTime {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
