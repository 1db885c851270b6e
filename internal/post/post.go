// Package post is the unit of indexing: a parsed front matter header, the
// Markdown body after it, the slug derived from the file name and the plain
// text extracted for search.
package post

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/extract"
	"github.com/starford/smark/internal/frontmatter"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// Post is a Markdown post. Only SetTimestamps mutates it.
type Post struct {
	slug     string
	matter   frontmatter.FrontMatter
	body     string
	plain    string
	hasPlain bool
}

// New assembles a post and extracts its search text from body.
func New(slug string, matter frontmatter.FrontMatter, body string) *Post {
	return &Post{
		slug:     slug,
		matter:   matter,
		body:     body,
		plain:    extract.Text(body),
		hasPlain: true,
	}
}

// FromText parses a full post text.
func FromText(slug, text string) (*Post, error) {
	yamlText, body, err := frontmatter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("post: %s: %w", slug, err)
	}
	matter, err := frontmatter.ParseYAML(yamlText)
	if err != nil {
		return nil, fmt.Errorf("post: %s: %w", slug, err)
	}
	return New(slug, matter, body), nil
}

// FromFile reads and parses the post at path.
func FromFile(path string) (*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("post: read %s: %w", path, err)
	}
	return FromText(Slug(filepath.Base(path)), string(data))
}

// FromDocument rebuilds a post from a stored index document. The search text
// is not stored, so the result has none.
func FromDocument(doc schema.Document, c *schema.Catalog) (*Post, error) {
	var f frontmatter.Fields
	var slug, body, code string
	for _, s := range []struct {
		field schema.PostField
		dst   *string
	}{
		{schema.UUID, &f.UUID},
		{schema.Slug, &slug},
		{schema.Title, &f.Title},
		{schema.Description, &f.Description},
		{schema.Category, &f.Category},
		{schema.Lang, &code},
		{schema.Body, &body},
	} {
		v, err := c.Text(doc, s.field)
		if err != nil {
			return nil, fmt.Errorf("post: from document: %w", err)
		}
		*s.dst = v
	}

	l, err := lang.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("post: from document: %w", err)
	}
	f.Lang = l

	if f.Tags, err = c.Tags(doc); err != nil {
		return nil, fmt.Errorf("post: from document: %w", err)
	}
	created, err := c.DateTime(doc, schema.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("post: from document: %w", err)
	}
	updated, err := c.DateTime(doc, schema.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("post: from document: %w", err)
	}
	f.CreatedAt = &created
	f.UpdatedAt = &updated

	return &Post{slug: slug, matter: frontmatter.New(f), body: body}, nil
}

// Slug strips one trailing extension from a file name. Names without an
// extension, with an empty stem, or equal to ".." are returned whole.
func Slug(name string) string {
	if name == ".." {
		return name
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name
	}
	return name[:i]
}

func (p *Post) Slug() string                    { return p.slug }
func (p *Post) Matter() frontmatter.FrontMatter { return p.matter }
func (p *Post) Body() string                    { return p.body }
func (p *Post) UUID() string                    { return p.matter.UUID() }
func (p *Post) Lang() lang.Lang                 { return p.matter.Lang() }

// PlainText is the extracted search text, if the post carries one.
func (p *Post) PlainText() (string, bool) { return p.plain, p.hasPlain }

// SetTimestamps replaces the header dates, typically with the values an
// index commit settled on, before the post is written back to disk.
func (p *Post) SetTimestamps(created, updated datetime.DateTime) {
	p.matter = p.matter.WithTimestamps(created, updated)
}

// Text renders the header followed by the untouched body.
func (p *Post) Text() (string, error) {
	head, err := p.matter.Text()
	if err != nil {
		return "", err
	}
	return head + p.body, nil
}

// DumpPath is where the post lives in a dump: "<lang>/<slug>.md".
func (p *Post) DumpPath() string {
	return filepath.Join(p.matter.Lang().String(), p.slug+".md")
}

// Document flattens the post for the index. The dates are supplied by the
// caller because they depend on what the index already holds.
func (p *Post) Document(created, updated datetime.DateTime) schema.Document {
	m := p.matter
	doc := schema.Document{
		schema.UUID.Name():            m.UUID(),
		schema.Slug.Name():            p.slug,
		schema.Title.Name():           m.Title(),
		schema.Description.Name():     m.Description(),
		schema.Lang.Name():            m.Lang().String(),
		schema.Category.Name():        m.Category(),
		schema.Body.Name():            p.body,
		schema.CreatedAt.Name():       created.Time(),
		schema.UpdatedAt.Name():       updated.Time(),
		schema.CreatedAtFormat.Name(): string(created.Format()),
		schema.UpdatedAtFormat.Name(): string(updated.Format()),
	}
	if tags := m.Tags(); len(tags) > 0 {
		doc[schema.Tags.Name()] = tags
	}
	if p.hasPlain {
		doc[schema.RawText.Name()] = p.plain
	}
	return doc
}

// EqualFromIndex reports whether two posts would produce the same index
// document apart from their dates.
func EqualFromIndex(a, b *Post) bool {
	return a.body == b.body &&
		a.slug == b.slug &&
		frontmatter.EqualIgnoringTimestamps(a.matter, b.matter)
}
