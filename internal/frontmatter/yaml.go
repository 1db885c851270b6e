package frontmatter

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/lang"
)

// Parse reads the header of a full post text.
func Parse(text string) (FrontMatter, error) {
	yamlText, _, err := Split(text)
	if err != nil {
		return FrontMatter{}, fmt.Errorf("frontmatter: %w", err)
	}
	return ParseYAML(yamlText)
}

// ParseYAML reads the YAML between the delimiters.
func ParseYAML(yamlText string) (FrontMatter, error) {
	values, err := decode(yamlText)
	if err != nil {
		return FrontMatter{}, err
	}

	var f Fields
	required := []struct {
		key string
		dst *string
	}{
		{KeyUUID, &f.UUID},
		{KeyTitle, &f.Title},
		{KeyCategory, &f.Category},
		{KeyDescription, &f.Description},
	}
	for _, r := range required {
		s, ok := values.str(r.key)
		if !ok {
			return FrontMatter{}, fmt.Errorf("frontmatter: %w: %s", ErrMissingField, r.key)
		}
		*r.dst = s
	}

	if f.Lang, err = values.lang(); err != nil {
		return FrontMatter{}, err
	}
	if f.Tags, err = values.tags(); err != nil {
		return FrontMatter{}, err
	}
	if f.CreatedAt, err = values.date(KeyCreatedAt); err != nil {
		return FrontMatter{}, err
	}
	if f.UpdatedAt, err = values.date(KeyUpdatedAt); err != nil {
		return FrontMatter{}, err
	}
	return New(f), nil
}

// Overrides are explicit values for Replace. Nil leaves the field to the
// existing header or its default.
type Overrides struct {
	UUID        *string
	Title       *string
	Description *string
	Category    *string
	Lang        *lang.Lang
	Tags        []string
	CreatedAt   *datetime.DateTime
	UpdatedAt   *datetime.DateTime
}

// Replace builds a header from overrides, then the existing YAML, then
// defaults: a fresh uuid, empty strings and lang.Default. Dates fall back to
// the existing YAML and are otherwise left out.
func Replace(existingYAML string, o Overrides) (FrontMatter, error) {
	values, err := decode(existingYAML)
	if err != nil {
		return FrontMatter{}, err
	}

	pick := func(override *string, key, def string) string {
		if override != nil {
			return *override
		}
		if s, ok := values.str(key); ok {
			return s
		}
		return def
	}

	f := Fields{
		UUID:        pick(o.UUID, KeyUUID, ""),
		Title:       pick(o.Title, KeyTitle, ""),
		Description: pick(o.Description, KeyDescription, ""),
		Category:    pick(o.Category, KeyCategory, ""),
		Tags:        o.Tags,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if f.UUID == "" && o.UUID == nil {
		f.UUID = uuid.NewString()
	}

	if o.Lang != nil {
		f.Lang = *o.Lang
	} else if f.Lang, err = values.lang(); err != nil {
		return FrontMatter{}, err
	}
	if f.Tags == nil {
		if f.Tags, err = values.tags(); err != nil {
			return FrontMatter{}, err
		}
	}
	if f.CreatedAt == nil {
		if f.CreatedAt, err = values.date(KeyCreatedAt); err != nil {
			return FrontMatter{}, err
		}
	}
	if f.UpdatedAt == nil {
		if f.UpdatedAt, err = values.date(KeyUpdatedAt); err != nil {
			return FrontMatter{}, err
		}
	}
	return New(f), nil
}

// Text renders the header including both delimiter lines.
func (m FrontMatter) Text() (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, scalar(key), value)
	}

	add(KeyUUID, scalar(m.uuid))
	add(KeyTitle, scalar(m.title))
	add(KeyDescription, scalar(m.description))
	add(KeyLang, scalar(m.lang.String()))
	add(KeyCategory, scalar(m.category))
	if len(m.tags) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, t := range m.tags {
			seq.Content = append(seq.Content, scalar(t))
		}
		add(KeyTags, seq)
	}
	if m.createdAt != nil {
		add(KeyCreatedAt, quoted(m.createdAt.String()))
	}
	if m.updatedAt != nil {
		add(KeyUpdatedAt, quoted(m.updatedAt.String()))
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: encode: %w", err)
	}
	buf.WriteString("---\n")
	return buf.String(), nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func quoted(s string) *yaml.Node {
	n := scalar(s)
	n.Style = yaml.DoubleQuotedStyle
	return n
}

// mapping holds the top-level values of a YAML block by key.
type mapping map[string]*yaml.Node

func decode(yamlText string) (mapping, error) {
	out := mapping{}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yamlText), &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return out, nil
	}
	root := resolve(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return out, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: %w: header must be a mapping", ErrInvalidField)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		out[root.Content[i].Value] = resolve(root.Content[i+1])
	}
	return out, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// str returns the raw text of a non-null scalar.
func (m mapping) str(key string) (string, bool) {
	n, ok := m[key]
	if !ok || n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

func (m mapping) lang() (lang.Lang, error) {
	n, ok := m[KeyLang]
	if !ok || n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null") {
		return lang.Default, nil
	}
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", fmt.Errorf("frontmatter: %w: lang must be a string", ErrInvalidField)
	}
	l, err := lang.Parse(n.Value)
	if err != nil {
		return "", fmt.Errorf("frontmatter: %w: %w", ErrInvalidField, err)
	}
	return l, nil
}

func (m mapping) tags() ([]string, error) {
	n, ok := m[KeyTags]
	if !ok || n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("frontmatter: %w: tags must be a list", ErrInvalidField)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolve(item)
		if item.Kind != yaml.ScalarNode || (item.ShortTag() != "!!str" && item.ShortTag() != "!!int") {
			return nil, fmt.Errorf("frontmatter: %w: %q", ErrUnsupportedTag, item.Value)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func (m mapping) date(key string) (*datetime.DateTime, error) {
	s, ok := m.str(key)
	if !ok {
		return nil, nil
	}
	d, err := datetime.Parse(s, "")
	if err != nil {
		return nil, fmt.Errorf("frontmatter: %w: %s %q", ErrInvalidDate, key, s)
	}
	return &d, nil
}
