package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Paragraphs styled Heading1-3 are section
// headings; other non-empty paragraphs are text nodes.
type DOCXParser struct{}

func (p *DOCXParser) Open(r io.Reader, filename string) (doctree.Source, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "fxgest-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: write temp file: %v", internalerr.ErrDocumentRead, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", internalerr.ErrDocumentParse, err)
	}

	items := doc.Document.Body.Items
	i := 0
	return &sliceSource{fill: func() ([]doctree.Node, error) {
		for i < len(items) {
			item := items[i]
			i++
			para, ok := item.(*docx.Paragraph)
			if !ok {
				continue
			}
			text := docxParagraphText(para)
			if text == "" {
				continue
			}
			if level := docxHeadingLevel(para); level > 0 && level <= 3 {
				return []doctree.Node{{Kind: doctree.KindHeading, Tag: fmt.Sprintf("h%d", level), Text: text}}, nil
			}
			return []doctree.Node{{Kind: doctree.KindText, Tag: "p", Text: text}}, nil
		}
		return nil, nil
	}}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
