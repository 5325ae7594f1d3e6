package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
)

// Parser opens a node stream over raw document bytes.
type Parser interface {
	Open(r io.Reader, filename string) (doctree.Source, error)
}

// Options bound the work a parser may do on one document.
type Options struct {
	MaxNestingDepth      int
	MaxTokenBytes        int
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return &HTMLParser{MaxNestingDepth: opts.MaxNestingDepth, MaxTokenBytes: opts.MaxTokenBytes}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// IsBinary reports whether the raw bytes of a format are compressed or
// encoded, so text scans must run over extracted text instead.
func IsBinary(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx":
		return true
	}
	return false
}

// sliceSource serves nodes that were produced up front or page by page.
type sliceSource struct {
	nodes []doctree.Node
	pos   int
	fill  func() ([]doctree.Node, error) // next batch; nil batch and nil error mean done
	close func() error
}

func (s *sliceSource) Next() (doctree.Node, error) {
	for s.pos >= len(s.nodes) {
		if s.fill == nil {
			return doctree.Node{}, io.EOF
		}
		batch, err := s.fill()
		if err != nil {
			return doctree.Node{}, err
		}
		if batch == nil {
			s.fill = nil
			continue
		}
		s.nodes, s.pos = batch, 0
	}
	n := s.nodes[s.pos]
	s.pos++
	return n, nil
}

func (s *sliceSource) Close() error {
	if s.close != nil {
		c := s.close
		s.close = nil
		return c()
	}
	return nil
}
