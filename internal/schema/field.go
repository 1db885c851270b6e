// Package schema declares how each post attribute is stored and analyzed in
// the search index, and reads typed values back out of index documents.
package schema

import (
	"fmt"
)

// PostField is a logical post attribute.
type PostField int

const (
	UUID PostField = iota
	Slug
	Title
	Description
	Lang
	Category
	Tags
	Body
	RawText
	CreatedAt
	UpdatedAt
	CreatedAtFormat
	UpdatedAtFormat

	fieldCount
)

// Kind is how a field is indexed.
type Kind int

const (
	// KindProse is human-written text analyzed with a language analyzer.
	KindProse Kind = iota + 1
	// KindRaw is a lower-cased single token for exact matches.
	KindRaw
	// KindStored is kept verbatim and never searched.
	KindStored
	// KindDate is a sortable instant.
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindProse:
		return "prose"
	case KindRaw:
		return "raw"
	case KindStored:
		return "stored"
	case KindDate:
		return "date"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fields lists every PostField in declaration order.
func Fields() []PostField {
	out := make([]PostField, 0, fieldCount)
	for f := PostField(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Name is the physical field name in the index. It is empty for values
// outside the enumeration.
func (f PostField) Name() string {
	switch f {
	case UUID:
		return "uuid"
	case Slug:
		return "slug"
	case Title:
		return "title"
	case Description:
		return "description"
	case Lang:
		return "lang"
	case Category:
		return "category"
	case Tags:
		return "tags"
	case Body:
		return "body"
	case RawText:
		return "raw_text"
	case CreatedAt:
		return "created_at"
	case UpdatedAt:
		return "updated_at"
	case CreatedAtFormat:
		return "created_at_format"
	case UpdatedAtFormat:
		return "updated_at_format"
	}
	return ""
}

func (f PostField) String() string {
	if n := f.Name(); n != "" {
		return n
	}
	return fmt.Sprintf("PostField(%d)", int(f))
}

// kind classifies a field. ok is false only for values outside the enumeration.
func (f PostField) kind() (k Kind, ok bool) {
	switch f {
	case Title, Description, RawText:
		return KindProse, true
	case UUID, Slug, Lang, Category, Tags:
		return KindRaw, true
	case Body, CreatedAtFormat, UpdatedAtFormat:
		return KindStored, true
	case CreatedAt, UpdatedAt:
		return KindDate, true
	}
	return 0, false
}

// stored reports whether the field value is kept in the index. RawText is
// searchable only.
func (f PostField) stored() bool {
	return f != RawText
}

// formatField is the companion notation field of a date field.
func (f PostField) formatField() (PostField, bool) {
	switch f {
	case CreatedAt:
		return CreatedAtFormat, true
	case UpdatedAt:
		return UpdatedAtFormat, true
	}
	return 0, false
}

// ParseField resolves a physical field name.
func ParseField(name string) (PostField, error) {
	for _, f := range Fields() {
		if f.Name() == name {
			return f, nil
		}
	}
	return 0, &FieldError{Op: "parse", Name: name, Err: ErrUnknownField}
}
