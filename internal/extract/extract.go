// Package extract turns a Markdown body into the plain text that is indexed
// for full-text search.
package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Text walks the Markdown AST and returns its literal text fragments joined
// by newlines. Code block contents are kept verbatim. Runs of adjacent raw
// HTML are tokenized together and contribute only their text nodes.
func Text(body string) string {
	source := []byte(body)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	e := &extractor{source: source}
	_ = ast.Walk(doc, e.visit)
	e.flushHTML()
	return strings.Join(e.out, "\n")
}

type extractor struct {
	source []byte
	html   bytes.Buffer
	out    []string
}

func (e *extractor) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	switch n := n.(type) {
	case *ast.Text:
		e.text(n.Segment.Value(e.source))
	case *ast.String:
		e.text(n.Value)
	case *ast.AutoLink:
		e.text(n.Label(e.source))
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if code := e.lines(n.Lines()); len(code) > 0 {
			e.text(code)
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		e.html.Write(e.lines(n.Lines()))
		if n.HasClosure() {
			e.html.Write(n.ClosureLine.Value(e.source))
		}
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			e.html.Write(seg.Value(e.source))
		}
	}
	return ast.WalkContinue, nil
}

func (e *extractor) text(b []byte) {
	e.flushHTML()
	e.out = append(e.out, string(b))
}

func (e *extractor) lines(lines *text.Segments) []byte {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(e.source))
	}
	return buf.Bytes()
}

// flushHTML tokenizes the pending HTML and keeps its non-blank text nodes.
func (e *extractor) flushHTML() {
	if e.html.Len() == 0 {
		return
	}
	z := html.NewTokenizer(bytes.NewReader(e.html.Bytes()))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.TextToken {
			continue
		}
		if s := strings.TrimSpace(string(z.Text())); s != "" {
			e.out = append(e.out, s)
		}
	}
	e.html.Reset()
}
