package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Pages are read one at a time with the Go
// library; when the library cannot open the file it falls back to pdftotext
// if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Open(r io.Reader, filename string) (doctree.Source, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "fxgest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() error { return os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return nil, fmt.Errorf("%w: write temp file: %v", internalerr.ErrDocumentRead, err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		if !p.FallbackPdftotext {
			cleanup()
			return nil, fmt.Errorf("%w: open pdf: %v", internalerr.ErrDocumentParse, err)
		}
		text, ferr := extractPdftotext(tmpPath)
		cleanup()
		if ferr != nil {
			return nil, fmt.Errorf("%w: open pdf: %v; %v", internalerr.ErrDocumentParse, err, ferr)
		}
		pages := splitPages(text)
		page := 0
		return &sliceSource{fill: func() ([]doctree.Node, error) {
			if page >= len(pages) {
				return nil, nil
			}
			page++
			return pageNodes(page, pages[page-1]), nil
		}}, nil
	}

	numPages := reader.NumPage()
	page := 0
	return &sliceSource{
		fill: func() ([]doctree.Node, error) {
			for page < numPages {
				page++
				p := reader.Page(page)
				if p.V.IsNull() {
					continue
				}
				text, err := p.GetPlainText(nil)
				if err != nil {
					continue
				}
				return pageNodes(page, text), nil
			}
			return nil, nil
		},
		close: func() error {
			f.Close()
			return cleanup()
		},
	}, nil
}

// pageNodes emits a page marker followed by the page's paragraphs.
func pageNodes(page int, text string) []doctree.Node {
	nodes := []doctree.Node{{Kind: doctree.KindBreak, Tag: "page", Text: fmt.Sprintf("Page %d", page)}}
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		nodes = append(nodes, doctree.Node{Kind: doctree.KindText, Tag: "p", Text: para})
	}
	return nodes
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
