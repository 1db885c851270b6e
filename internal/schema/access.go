package schema

import (
	"strings"
	"time"

	"github.com/starford/smark/internal/datetime"
)

// Document is a flat index document keyed by physical field name. Values
// are string, []string or time.Time when built locally; stored values read
// back from the index may also be []any or RFC3339 strings.
type Document map[string]any

// PostView is the public JSON shape of a post. raw_text is never part of it.
type PostView struct {
	UUID        string   `json:"uuid"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Lang        string   `json:"lang"`
	Tags        []string `json:"tags"`
	Body        string   `json:"body"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func (c *Catalog) stored(op string, f PostField, kinds ...Kind) (Entry, error) {
	e, err := c.Field(f)
	if err != nil {
		return Entry{}, err
	}
	match := false
	for _, k := range kinds {
		if e.Kind == k {
			match = true
			break
		}
	}
	if !match {
		return Entry{}, fieldErr(op, f, ErrWrongFieldKind)
	}
	if !e.Stored {
		return Entry{}, fieldErr(op, f, ErrNotStored)
	}
	return e, nil
}

// Text reads a string-valued field. Multi-valued fields are space-joined.
// The index drops empty strings, so an absent value reads as "".
func (c *Catalog) Text(doc Document, f PostField) (string, error) {
	e, err := c.stored("text", f, KindProse, KindRaw, KindStored)
	if err != nil {
		return "", err
	}
	switch v := doc[e.Name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []string:
		return strings.Join(v, " "), nil
	case []any:
		parts, ok := stringSlice(v)
		if !ok {
			return "", fieldErr("text", f, ErrBadValue)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fieldErr("text", f, ErrBadValue)
}

// Tags reads the tag list; nil when the post has no tags.
func (c *Catalog) Tags(doc Document) ([]string, error) {
	e, err := c.stored("tags", Tags, KindRaw)
	if err != nil {
		return nil, err
	}
	switch v := doc[e.Name].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		parts, ok := stringSlice(v)
		if !ok {
			return nil, fieldErr("tags", Tags, ErrBadValue)
		}
		return parts, nil
	}
	return nil, fieldErr("tags", Tags, ErrBadValue)
}

// Date reads a date field as a UTC instant.
func (c *Catalog) Date(doc Document, f PostField) (time.Time, error) {
	e, err := c.stored("date", f, KindDate)
	if err != nil {
		return time.Time{}, err
	}
	switch v := doc[e.Name].(type) {
	case nil:
		return time.Time{}, fieldErr("date", f, ErrMissingValue)
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fieldErr("date", f, ErrBadValue)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fieldErr("date", f, ErrBadValue)
}

// DateTime combines a date field with its companion notation field.
func (c *Catalog) DateTime(doc Document, f PostField) (datetime.DateTime, error) {
	ff, ok := f.formatField()
	if !ok {
		return datetime.DateTime{}, fieldErr("datetime", f, ErrWrongFieldKind)
	}
	t, err := c.Date(doc, f)
	if err != nil {
		return datetime.DateTime{}, err
	}
	notation, err := c.Text(doc, ff)
	if err != nil {
		return datetime.DateTime{}, err
	}
	return datetime.New(t, datetime.Format(notation)), nil
}

// DateText renders a date field in the notation it was written in.
func (c *Catalog) DateText(doc Document, f PostField) (string, error) {
	d, err := c.DateTime(doc, f)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

// View projects a document into its public shape.
func (c *Catalog) View(doc Document) (PostView, error) {
	var v PostView
	for _, s := range []struct {
		f   PostField
		dst *string
	}{
		{UUID, &v.UUID},
		{Slug, &v.Slug},
		{Title, &v.Title},
		{Description, &v.Description},
		{Category, &v.Category},
		{Lang, &v.Lang},
		{Body, &v.Body},
	} {
		text, err := c.Text(doc, s.f)
		if err != nil {
			return PostView{}, err
		}
		*s.dst = text
	}

	var err error
	if v.Tags, err = c.Tags(doc); err != nil {
		return PostView{}, err
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.CreatedAt, err = c.DateText(doc, CreatedAt); err != nil {
		return PostView{}, err
	}
	if v.UpdatedAt, err = c.DateText(doc, UpdatedAt); err != nil {
		return PostView{}, err
	}
	return v, nil
}

func stringSlice(vs []any) ([]string, bool) {
	out := make([]string, 0, len(vs))
	for _, item := range vs {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
