package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown renditions of filings using goldmark.
// Heading levels 1-3 become section headings; every other top-level block is
// a text node.
type MarkdownParser struct{}

func (p *MarkdownParser) Open(r io.Reader, filename string) (doctree.Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrDocumentRead, err)
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	next := doc.FirstChild()
	return &sliceSource{
		fill: func() ([]doctree.Node, error) {
			for next != nil {
				n := next
				next = n.NextSibling()
				if node, ok := markdownNode(n, src); ok {
					return []doctree.Node{node}, nil
				}
			}
			return nil, nil
		},
	}, nil
}

func markdownNode(n ast.Node, src []byte) (doctree.Node, bool) {
	t := extractText(n, src)
	if t == "" {
		return doctree.Node{}, false
	}
	if h, ok := n.(*ast.Heading); ok && h.Level <= 3 {
		return doctree.Node{Kind: doctree.KindHeading, Tag: fmt.Sprintf("h%d", h.Level), Text: t}, true
	}
	return doctree.Node{Kind: doctree.KindText, Tag: strings.ToLower(n.Kind().String()), Text: t}, true
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		if c.Type() == ast.TypeBlock && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(extractText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
