package frontmatter

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/lang"
)

const sample = `---
uuid: 00000000-0000-4000-8000-000000000001
title: Hello
description: first post
lang: en
category: diary
tags:
  - go
  - 2022
created_at: "2022-01-11T19:08:09+00:00"
updated_at: 2022/01/11 19:22:50
---
# Body
`

func TestParse(t *testing.T) {
	m, err := Parse(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.UUID() != "00000000-0000-4000-8000-000000000001" {
		t.Errorf("uuid = %q", m.UUID())
	}
	if m.Title() != "Hello" || m.Description() != "first post" || m.Category() != "diary" {
		t.Errorf("unexpected strings: %+v", m.Fields())
	}
	if m.Lang() != lang.En {
		t.Errorf("lang = %q", m.Lang())
	}
	if want := []string{"go", "2022"}; !slices.Equal(m.Tags(), want) {
		t.Errorf("tags = %v, want %v", m.Tags(), want)
	}
	created, ok := m.CreatedAt()
	if !ok || created.Format() != datetime.RFC3339 {
		t.Errorf("created_at = %v (%v)", created, ok)
	}
	updated, ok := m.UpdatedAt()
	if !ok || updated.Format() != "%Y/%m/%d %H:%M:%S" {
		t.Errorf("updated_at format = %q", updated.Format())
	}
	if !updated.Time().Equal(time.Date(2022, 1, 11, 19, 22, 50, 0, time.UTC)) {
		t.Errorf("updated_at = %v", updated.Time())
	}
}

func TestParse_DefaultLang(t *testing.T) {
	m, err := Parse("---\nuuid: u\ntitle: t\ndescription: d\ncategory: c\n---\n")
	if err != nil {
		t.Fatal(err)
	}
	if m.Lang() != lang.Ja {
		t.Errorf("lang = %q, want ja", m.Lang())
	}
	if m.Tags() != nil {
		t.Errorf("tags = %v, want nil", m.Tags())
	}
	if _, ok := m.CreatedAt(); ok {
		t.Error("created_at should be absent")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		text string
		want error
		msg  string
	}{
		{"no block", "# just markdown\n", ErrNoFrontMatter, ""},
		{"unterminated", "---\nuuid: u\n", ErrNoFrontMatter, ""},
		{"missing uuid", "---\ntitle: t\ndescription: d\ncategory: c\n---\n", ErrMissingField, "uuid"},
		{"missing category", "---\nuuid: u\ntitle: t\ndescription: d\n---\n", ErrMissingField, "category"},
		{"bad tag", "---\nuuid: u\ntitle: t\ndescription: d\ncategory: c\ntags:\n  - [a]\n---\n", ErrUnsupportedTag, ""},
		{"float tag", "---\nuuid: u\ntitle: t\ndescription: d\ncategory: c\ntags:\n  - 1.5\n---\n", ErrUnsupportedTag, ""},
		{"bad date", "---\nuuid: u\ntitle: t\ndescription: d\ncategory: c\ncreated_at: someday\n---\n", ErrInvalidDate, "someday"},
		{"bad lang", "---\nuuid: u\ntitle: t\ndescription: d\ncategory: c\nlang: fr\n---\n", ErrInvalidField, "fr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if tc.msg != "" && !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("error %q does not mention %q", err, tc.msg)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in, yaml, body string
	}{
		{"---\nuuid: a\n---\nbody\n", "uuid: a\n", "body\n"},
		{"---\n---\nbody", "", "body"},
		{"---\nuuid: a\n---", "uuid: a\n", ""},
		{"---\nuuid: a\n---\n\n---\nnot a header\n", "uuid: a\n", "\n---\nnot a header\n"},
	}
	for _, tc := range cases {
		y, b, err := Split(tc.in)
		if err != nil {
			t.Fatalf("Split(%q): %v", tc.in, err)
		}
		if y != tc.yaml || b != tc.body {
			t.Errorf("Split(%q) = %q, %q; want %q, %q", tc.in, y, b, tc.yaml, tc.body)
		}
	}
}

func TestText_FixedOrder(t *testing.T) {
	d := datetime.New(time.Date(2022, 1, 11, 19, 8, 9, 0, time.UTC), datetime.RFC3339)
	m := New(Fields{
		UUID:        "uuid",
		Title:       "title",
		Description: "description",
		Category:    "category",
		Lang:        lang.En,
		CreatedAt:   &d,
		UpdatedAt:   &d,
	})
	got, err := m.Text()
	if err != nil {
		t.Fatal(err)
	}
	want := "---\nuuid: uuid\ntitle: title\ndescription: description\nlang: en\ncategory: category\n" +
		"created_at: \"2022-01-11T19:08:09+00:00\"\nupdated_at: \"2022-01-11T19:08:09+00:00\"\n---\n"
	if got != want {
		t.Errorf("Text() =\n%s\nwant\n%s", got, want)
	}
}

func TestText_RoundTrip(t *testing.T) {
	m, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	text, err := m.Text()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(text)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	if !EqualIgnoringTimestamps(m, back) {
		t.Errorf("round trip changed fields: %+v vs %+v", m.Fields(), back.Fields())
	}
	u1, _ := m.UpdatedAt()
	u2, _ := back.UpdatedAt()
	if !u1.Equal(u2) {
		t.Errorf("updated_at changed: %v vs %v", u1, u2)
	}
	if !strings.Contains(text, `updated_at: "2022/01/11 19:22:50"`) {
		t.Errorf("notation not preserved:\n%s", text)
	}
}

func TestText_QuotesAmbiguousScalars(t *testing.T) {
	m := New(Fields{UUID: "123", Title: "yes", Description: "", Category: "a: b", Lang: lang.Ja})
	text, err := m.Text()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(text)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	if !EqualIgnoringTimestamps(m, back) {
		t.Errorf("got %+v from\n%s", back.Fields(), text)
	}
}

func TestEqualIgnoringTimestamps(t *testing.T) {
	d1 := datetime.Now(datetime.RFC3339)
	d2 := datetime.New(d1.Time().Add(time.Hour), "%Y-%m-%d")
	a := New(Fields{UUID: "u", Title: "t", Lang: lang.En, CreatedAt: &d1})
	b := New(Fields{UUID: "u", Title: "t", Lang: lang.En, Tags: []string{}, UpdatedAt: &d2})
	if !EqualIgnoringTimestamps(a, b) {
		t.Error("timestamps and empty tags should not matter")
	}
	c := New(Fields{UUID: "u", Title: "t", Lang: lang.Ja})
	if EqualIgnoringTimestamps(a, c) {
		t.Error("lang must matter")
	}
	e := New(Fields{UUID: "u", Title: "t", Lang: lang.En, Tags: []string{"x", "y"}})
	f := New(Fields{UUID: "u", Title: "t", Lang: lang.En, Tags: []string{"y", "x"}})
	if EqualIgnoringTimestamps(e, f) {
		t.Error("tag order must matter")
	}
}

func TestImmutability(t *testing.T) {
	tags := []string{"a"}
	m := New(Fields{UUID: "u", Tags: tags})
	tags[0] = "changed"
	got := m.Tags()
	got[0] = "changed too"
	if m.Tags()[0] != "a" {
		t.Errorf("tags leaked: %v", m.Tags())
	}
}

func TestWithTimestamps(t *testing.T) {
	m := New(Fields{UUID: "u"})
	c := datetime.Now(datetime.RFC2822)
	u := datetime.Now("%Y/%m/%d")
	n := m.WithTimestamps(c, u)
	if _, ok := m.CreatedAt(); ok {
		t.Error("original must not change")
	}
	got, ok := n.UpdatedAt()
	if !ok || !got.Equal(u) {
		t.Errorf("updated_at = %v", got)
	}
}

func TestReplace_Tiers(t *testing.T) {
	existing := "uuid: keep-me\ntitle: old\ndescription: d\ncategory: c\nlang: en\ntags:\n  - t1\nupdated_at: 2022/01/11 19:22:50\n"
	title := "new"
	created := datetime.New(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), "%Y-%m-%d")
	m, err := Replace(existing, Overrides{Title: &title, CreatedAt: &created})
	if err != nil {
		t.Fatal(err)
	}
	if m.UUID() != "keep-me" {
		t.Errorf("uuid = %q", m.UUID())
	}
	if m.Title() != "new" {
		t.Errorf("title = %q", m.Title())
	}
	if m.Lang() != lang.En {
		t.Errorf("lang = %q", m.Lang())
	}
	if !slices.Equal(m.Tags(), []string{"t1"}) {
		t.Errorf("tags = %v", m.Tags())
	}
	if got, ok := m.CreatedAt(); !ok || !got.Equal(created) {
		t.Errorf("created_at = %v", got)
	}
	if got, ok := m.UpdatedAt(); !ok || got.String() != "2022/01/11 19:22:50" {
		t.Errorf("updated_at = %v", got)
	}
}

func TestReplace_Defaults(t *testing.T) {
	m, err := Replace("", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if m.UUID() == "" {
		t.Error("uuid should be generated")
	}
	if m.Title() != "" || m.Category() != "" || m.Description() != "" {
		t.Errorf("expected empty strings, got %+v", m.Fields())
	}
	if m.Lang() != lang.Ja {
		t.Errorf("lang = %q", m.Lang())
	}
	if _, ok := m.CreatedAt(); ok {
		t.Error("dates default to absent")
	}
	if _, err := Parse(mustText(t, m)); err != nil {
		t.Errorf("replaced header does not parse: %v", err)
	}
}

func TestTemplate(t *testing.T) {
	m := Template(lang.En, true, "%Y/%m/%d %H:%M:%S")
	text := mustText(t, m)
	back, err := Parse(text)
	if err != nil {
		t.Fatalf("template does not parse: %v\n%s", err, text)
	}
	if got, ok := back.CreatedAt(); !ok || got.Format() != "%Y/%m/%d %H:%M:%S" {
		t.Errorf("created_at = %v", got)
	}
	if _, err := Parse(mustText(t, Template(lang.Ja, false, datetime.Default))); err != nil {
		t.Error(err)
	}
}

func mustText(t *testing.T, m FrontMatter) string {
	t.Helper()
	s, err := m.Text()
	if err != nil {
		t.Fatal(err)
	}
	return s
}
