package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
	"golang.org/x/net/html"
)

const (
	defaultMaxNestingDepth = 512
	defaultMaxTokenBytes   = 8 << 20
)

// HTMLParser streams HTML files with a tokenizer. Only the chain of open
// elements and the text of elements not yet closed are retained, so memory
// follows nesting depth rather than document size.
type HTMLParser struct {
	MaxNestingDepth int
	MaxTokenBytes   int
}

func (p *HTMLParser) Open(r io.Reader, filename string) (doctree.Source, error) {
	return NewHTMLSource(r, p.MaxNestingDepth, p.MaxTokenBytes), nil
}

// HTMLStats describes the peak state retained during a traversal.
type HTMLStats struct {
	PeakDepth    int // open elements
	PeakBuffered int // bytes of pending text
	Nodes        int // nodes emitted
}

type frame struct {
	tag     string
	start   int // offset into the text buffer when the element opened
	capture bool
	heading bool // capturing title or h1-h3
	skip    bool
}

// HTMLSource is a doctree.Source over an HTML token stream.
type HTMLSource struct {
	z        *html.Tokenizer
	maxDepth int

	stack    []frame
	text     []byte
	captures int // open capturing frames
	headings int // open capturing title/heading frames
	skips    int // open script/style frames

	pending []doctree.Node
	next    int
	done    bool
	err     error

	stats HTMLStats
}

// NewHTMLSource wraps r. Non-positive limits select the defaults.
func NewHTMLSource(r io.Reader, maxDepth, maxTokenBytes int) *HTMLSource {
	if maxDepth <= 0 {
		maxDepth = defaultMaxNestingDepth
	}
	if maxTokenBytes <= 0 {
		maxTokenBytes = defaultMaxTokenBytes
	}
	z := html.NewTokenizer(r)
	z.SetMaxBuf(maxTokenBytes)
	return &HTMLSource{z: z, maxDepth: maxDepth}
}

// Stats returns the traversal statistics gathered so far.
func (s *HTMLSource) Stats() HTMLStats { return s.stats }

func (s *HTMLSource) Close() error { return nil }

func (s *HTMLSource) Next() (doctree.Node, error) {
	for s.next >= len(s.pending) {
		s.pending, s.next = s.pending[:0], 0
		if s.err != nil {
			return doctree.Node{}, s.err
		}
		if s.done {
			return doctree.Node{}, io.EOF
		}
		if err := s.step(); err != nil {
			s.err = err
		}
	}
	n := s.pending[s.next]
	s.pending[s.next] = doctree.Node{}
	s.next++
	return n, nil
}

// step consumes one token, possibly queueing nodes for closed elements.
func (s *HTMLSource) step() error {
	tt := s.z.Next()
	switch tt {
	case html.ErrorToken:
		err := s.z.Err()
		if err == io.EOF {
			for len(s.stack) > 0 {
				s.pop()
			}
			s.done = true
			return nil
		}
		if errors.Is(err, html.ErrBufferExceeded) {
			return fmt.Errorf("%w: markup token exceeds buffer limit: %v", internalerr.ErrDocumentParse, err)
		}
		return fmt.Errorf("%w: %v", internalerr.ErrDocumentRead, err)

	case html.TextToken:
		if s.captures > 0 && s.skips == 0 {
			s.text = append(s.text, s.z.Text()...)
			s.trackBuffered()
		}

	case html.StartTagToken:
		name, _ := s.z.TagName()
		return s.open(string(name))

	case html.SelfClosingTagToken:
		name, _ := s.z.TagName()
		if !isInline(string(name)) {
			s.separate()
		}

	case html.EndTagToken:
		name, _ := s.z.TagName()
		s.close(string(name))
	}
	return nil
}

func (s *HTMLSource) open(tag string) error {
	if voidElements[tag] {
		if closesParagraph[tag] {
			s.closeOpenParagraph()
		}
		if !isInline(tag) {
			s.separate()
		}
		return nil
	}
	if closesParagraph[tag] {
		s.closeOpenParagraph()
	}
	if !isInline(tag) {
		s.separate()
	}

	// A heading owns all of its descendant text, so nothing nested in it
	// captures on its own.
	f := frame{tag: tag, start: len(s.text), capture: captureTags[tag] && s.headings == 0, skip: tag == "script" || tag == "style"}
	f.heading = f.capture && kindFor(tag) != doctree.KindText
	s.stack = append(s.stack, f)
	if len(s.stack) > s.maxDepth {
		return fmt.Errorf("%w: nesting exceeds %d elements at <%s>", internalerr.ErrDocumentParse, s.maxDepth, tag)
	}
	if len(s.stack) > s.stats.PeakDepth {
		s.stats.PeakDepth = len(s.stack)
	}
	if f.capture {
		s.captures++
	}
	if f.heading {
		s.headings++
	}
	if f.skip {
		s.skips++
	}
	return nil
}

// close pops up to and including the innermost open element named tag. An end
// tag with no open element is ignored.
func (s *HTMLSource) close(tag string) {
	if tag == "br" {
		s.separate()
		return
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].tag == tag {
			for len(s.stack) > i {
				s.pop()
			}
			return
		}
	}
}

// closeOpenParagraph applies the implied </p> before a block element.
func (s *HTMLSource) closeOpenParagraph() {
	for i := len(s.stack) - 1; i >= 0; i-- {
		tag := s.stack[i].tag
		if tag == "p" {
			for len(s.stack) > i {
				s.pop()
			}
			return
		}
		if !isInline(tag) {
			return
		}
	}
}

// pop finishes the innermost element. A capturing element takes its pending
// text with it, so ancestors never see text that was already emitted. A
// non-capturing block such as a table cell or list item drops its text unless
// it sits inside a heading, so a wrapper element never accumulates it.
func (s *HTMLSource) pop() {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	if f.skip {
		s.skips--
	}
	if f.heading {
		s.headings--
	}
	if !f.capture {
		if isInline(f.tag) {
			return
		}
		if s.headings == 0 && f.start < len(s.text) {
			s.text = s.text[:f.start]
		}
		s.separate()
		return
	}
	s.captures--

	raw := strings.TrimSpace(string(s.text[f.start:]))
	s.text = s.text[:f.start]
	if s.captures == 0 {
		s.text = s.text[:0]
	} else {
		s.separate()
	}
	if raw == "" {
		return
	}

	s.pending = append(s.pending, doctree.Node{Kind: kindFor(f.tag), Tag: f.tag, Text: raw})
	s.stats.Nodes++
}

// separate keeps words from neighbouring blocks apart.
func (s *HTMLSource) separate() {
	if s.captures == 0 || len(s.text) == 0 {
		return
	}
	if s.text[len(s.text)-1] != ' ' {
		s.text = append(s.text, ' ')
		s.trackBuffered()
	}
}

func (s *HTMLSource) trackBuffered() {
	if len(s.text) > s.stats.PeakBuffered {
		s.stats.PeakBuffered = len(s.text)
	}
}

func kindFor(tag string) doctree.Kind {
	switch tag {
	case "title":
		return doctree.KindTitle
	case "h1", "h2", "h3":
		return doctree.KindHeading
	}
	return doctree.KindText
}

var captureTags = map[string]bool{
	"title": true,
	"h1":    true, "h2": true, "h3": true,
	"p": true, "div": true, "span": true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var closesParagraph = map[string]bool{
	"p": true, "div": true, "table": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "hr": true,
}

var inlineTags = map[string]bool{
	"a": true, "b": true, "i": true, "u": true, "em": true, "strong": true,
	"font": true, "small": true, "big": true, "sub": true, "sup": true,
	"span": true, "abbr": true, "code": true, "s": true, "strike": true,
	"img": true, "wbr": true,
}

// isInline covers formatting elements and inline XBRL wrappers (ix:*), which
// split words in filings without meaning a block boundary.
func isInline(tag string) bool {
	return inlineTags[tag] || strings.HasPrefix(tag, "ix:")
}
