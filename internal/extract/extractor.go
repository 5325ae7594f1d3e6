// Package extract runs the walker over a single filing document and reports
// the outcome as a value. Failures are logged here and never escape as
// errors the caller has to handle.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/dgallion1/fxgest/internal/parser"
	"github.com/dgallion1/fxgest/internal/walker"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// Result is the outcome of one document. When Err is set every other field
// except Path, Bytes and Duration is zero.
type Result struct {
	Path      string
	Company   string
	Year      string
	Text      string // rendered corpus; empty when nothing was relevant
	Fragments int
	Bytes     int64
	Duration  time.Duration
	Err       error
}

// Empty reports whether the document contributed nothing.
func (r Result) Empty() bool { return r.Err != nil || r.Text == "" }

// Extractor reads documents through afs so inputs may be local paths or any
// URL scheme afs supports.
type Extractor struct {
	fs     afs.Service
	walker *walker.Walker
	opts   parser.Options
	stats  *Stats
	log    *slog.Logger
}

func New(fs afs.Service, w *walker.Walker, opts parser.Options, stats *Stats, log *slog.Logger) *Extractor {
	return &Extractor{fs: fs, walker: w, opts: opts, stats: stats, log: log}
}

// Extract processes one document. Read and parse failures are logged and
// returned in Result.Err wrapping internalerr.ErrDocumentRead or
// internalerr.ErrDocumentParse.
func (e *Extractor) Extract(ctx context.Context, URL string) Result {
	start := time.Now()
	res := e.extract(ctx, URL)
	res.Path = URL
	res.Duration = time.Since(start)

	if res.Err != nil {
		e.log.Error("extract document", "path", URL, "error", res.Err)
	} else if res.Text == "" {
		e.log.Info("no relevant content", "path", URL)
	}
	if e.stats != nil {
		e.stats.Record(res)
	}
	return res
}

func (e *Extractor) extract(ctx context.Context, URL string) Result {
	name := path.Base(url.Path(URL))
	p, err := parser.ForFile(name, e.opts)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", internalerr.ErrDocumentParse, err)}
	}

	rc, err := e.fs.OpenURL(ctx, URL)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: open %s: %v", internalerr.ErrDocumentRead, URL, err)}
	}
	defer rc.Close()

	counted := &countingReader{r: rc}
	years := &YearScanner{}
	binary := parser.IsBinary(name)

	var r io.Reader = counted
	if !binary {
		r = io.TeeReader(counted, years)
	}

	src, err := p.Open(r, name)
	if err != nil {
		return Result{Bytes: counted.n, Err: classifyErr(err)}
	}
	if binary {
		src = &scannedSource{Source: src, years: years}
	}
	company, corpus, err := e.walker.Walk(src)
	if cerr := src.Close(); cerr != nil {
		e.log.Warn("close document source", "path", URL, "error", cerr)
	}
	if err != nil {
		return Result{Bytes: counted.n, Err: classifyErr(err)}
	}

	return Result{
		Company:   company,
		Year:      years.Year(),
		Text:      corpus.Render(),
		Fragments: corpus.Len(),
		Bytes:     counted.n,
	}
}

// classifyErr keeps sentinel-wrapped errors and files anything else as a
// parse failure.
func classifyErr(err error) error {
	if errors.Is(err, internalerr.ErrDocumentRead) || errors.Is(err, internalerr.ErrDocumentParse) {
		return err
	}
	return fmt.Errorf("%w: %v", internalerr.ErrDocumentParse, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// scannedSource feeds extracted node text to the year scanner for formats
// whose raw bytes are compressed.
type scannedSource struct {
	doctree.Source
	years *YearScanner
}

func (s *scannedSource) Next() (doctree.Node, error) {
	n, err := s.Source.Next()
	if err == nil && !s.years.Found() {
		s.years.WriteString(n.Text)
		s.years.WriteString("\n")
	}
	return n, err
}
