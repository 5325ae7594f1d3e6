package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
)

var (
	// EDGAR full-submission header line naming the filer.
	conformedName = regexp.MustCompile(`^\s*COMPANY CONFORMED NAME:\s*(.+?)\s*$`)
	// Form item captions such as "Item 7A. Quantitative and Qualitative Disclosures".
	itemHeading = regexp.MustCompile(`(?i)^\s*item\s+\d{1,2}[a-c]?\s*[.:\-]\s*\S`)
)

const maxHeadingWords = 14

// TextParser handles plain text files and raw EDGAR submissions. Paragraphs
// are separated by blank lines and are streamed one at a time.
type TextParser struct{}

func (p *TextParser) Open(r io.Reader, filename string) (doctree.Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &textSource{scanner: scanner}, nil
}

type textSource struct {
	scanner *bufio.Scanner
	current strings.Builder
	queue   []doctree.Node
	done    bool
	titled  bool
}

func (s *textSource) Close() error { return nil }

func (s *textSource) Next() (doctree.Node, error) {
	for len(s.queue) == 0 {
		if s.done {
			return doctree.Node{}, io.EOF
		}
		if err := s.readLine(); err != nil {
			return doctree.Node{}, err
		}
	}
	n := s.queue[0]
	s.queue = s.queue[1:]
	return n, nil
}

func (s *textSource) readLine() error {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			if err == bufio.ErrTooLong {
				return fmt.Errorf("%w: %v", internalerr.ErrDocumentParse, err)
			}
			return fmt.Errorf("%w: %v", internalerr.ErrDocumentRead, err)
		}
		s.flush()
		s.done = true
		return nil
	}

	line := s.scanner.Text()
	switch {
	case strings.TrimSpace(line) == "":
		s.flush()
	case !s.titled && conformedName.MatchString(line):
		s.flush()
		s.titled = true
		name := conformedName.FindStringSubmatch(line)[1]
		s.queue = append(s.queue, doctree.Node{Kind: doctree.KindTitle, Tag: "title", Text: name})
	case itemHeading.MatchString(line) && len(strings.Fields(line)) <= maxHeadingWords:
		s.flush()
		s.queue = append(s.queue, doctree.Node{Kind: doctree.KindHeading, Tag: "item", Text: strings.TrimSpace(line)})
	default:
		if s.current.Len() > 0 {
			s.current.WriteString("\n")
		}
		s.current.WriteString(line)
	}
	return nil
}

func (s *textSource) flush() {
	t := strings.TrimSpace(s.current.String())
	s.current.Reset()
	if t != "" {
		s.queue = append(s.queue, doctree.Node{Kind: doctree.KindText, Tag: "p", Text: t})
	}
}
