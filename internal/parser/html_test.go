package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dgallion1/fxgest/internal/doctree"
	"github.com/dgallion1/fxgest/internal/internalerr"
)

func htmlNodes(t *testing.T, input string) []doctree.Node {
	t.Helper()
	return collect(t, NewHTMLSource(strings.NewReader(input), 0, 0))
}

func TestHTMLSource_Kinds(t *testing.T) {
	nodes := htmlNodes(t, `<html><head><title>Acme Corp - 10-K</title></head>
<body><h2>Item 7A. Market Risk</h2><p>Currency &amp; rates.</p></body></html>`)

	want := []doctree.Node{
		{Kind: doctree.KindTitle, Tag: "title", Text: "Acme Corp - 10-K"},
		{Kind: doctree.KindHeading, Tag: "h2", Text: "Item 7A. Market Risk"},
		{Kind: doctree.KindText, Tag: "p", Text: "Currency & rates."},
	}
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %+v", len(want), nodes)
	}
	for i, w := range want {
		if nodes[i] != w {
			t.Errorf("node[%d] = %+v, want %+v", i, nodes[i], w)
		}
	}
}

func TestHTMLSource_NestedTextEmittedOnce(t *testing.T) {
	nodes := htmlNodes(t, `<div>Lead in<p>Inner paragraph</p>trailing</div>`)

	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %+v", nodes)
	}
	if nodes[0].Tag != "p" || nodes[0].Text != "Inner paragraph" {
		t.Errorf("first node = %+v", nodes[0])
	}
	if nodes[1].Tag != "div" || nodes[1].Text != "Lead in trailing" {
		t.Errorf("second node = %+v", nodes[1])
	}
}

func TestHTMLSource_InlineTagsDoNotSplitWords(t *testing.T) {
	nodes := htmlNodes(t, `<p>for<b>eign</b> ex<ix:nonNumeric name="x">change</ix:nonNumeric> risk</p>`)
	if len(nodes) != 1 || nodes[0].Text != "foreign exchange risk" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestHTMLSource_ImpliedParagraphClose(t *testing.T) {
	nodes := htmlNodes(t, `<p>first<p>second<div>third</div>`)
	var texts []string
	for _, n := range nodes {
		texts = append(texts, n.Tag+":"+n.Text)
	}
	got := strings.Join(texts, "|")
	if got != "p:first|p:second|div:third" {
		t.Errorf("got %q", got)
	}
}

func TestHTMLSource_SkipsScriptAndStyle(t *testing.T) {
	nodes := htmlNodes(t, `<div>visible<script>var fx = "hidden";</script><style>p{}</style>text</div>`)
	if len(nodes) != 1 || nodes[0].Text != "visible text" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestHTMLSource_TextOutsideCaptureIgnored(t *testing.T) {
	nodes := htmlNodes(t, `<table><tr><td>cell text</td></tr></table><p>kept</p>`)
	if len(nodes) != 1 || nodes[0].Text != "kept" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestHTMLSource_HeadingOwnsNestedText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  doctree.Node
	}{
		{"span", `<h2><span>Item 7A. Market Risk</span></h2>`, doctree.Node{Kind: doctree.KindHeading, Tag: "h2", Text: "Item 7A. Market Risk"}},
		{"split spans", `<h3><span>Item 7A.</span> <span style="x">Market Risk</span></h3>`, doctree.Node{Kind: doctree.KindHeading, Tag: "h3", Text: "Item 7A. Market Risk"}},
		{"block children", `<h1><div>Item 7A</div><div>Market Risk</div></h1>`, doctree.Node{Kind: doctree.KindHeading, Tag: "h1", Text: "Item 7A Market Risk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := htmlNodes(t, tt.input+`<p>after</p>`)
			if len(nodes) != 2 {
				t.Fatalf("expected 2 nodes, got %+v", nodes)
			}
			if nodes[0] != tt.want {
				t.Errorf("node = %+v, want %+v", nodes[0], tt.want)
			}
			if nodes[1].Text != "after" {
				t.Errorf("following node = %+v", nodes[1])
			}
		})
	}
}

func TestHTMLSource_WrapperDropsTableCells(t *testing.T) {
	nodes := htmlNodes(t, `<div>Intro text<table><tr><td>cell</td><td>1,234</td></tr></table>closing words</div>`)
	if len(nodes) != 1 || nodes[0].Text != "Intro text closing words" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestHTMLSource_DepthLimit(t *testing.T) {
	input := strings.Repeat("<div>", 20) + "deep" + strings.Repeat("</div>", 20)
	src := NewHTMLSource(strings.NewReader(input), 10, 0)
	var err error
	for err == nil {
		_, err = src.Next()
	}
	if !errors.Is(err, internalerr.ErrDocumentParse) {
		t.Fatalf("expected ErrDocumentParse, got %v", err)
	}
	if _, again := src.Next(); again != err {
		t.Errorf("error should be sticky, got %v", again)
	}
}

func TestHTMLSource_TokenBufferLimit(t *testing.T) {
	input := `<p title="` + strings.Repeat("a", 4096) + `">x</p>`
	src := NewHTMLSource(strings.NewReader(input), 0, 1024)
	var err error
	for err == nil {
		_, err = src.Next()
	}
	if !errors.Is(err, internalerr.ErrDocumentParse) {
		t.Fatalf("expected ErrDocumentParse, got %v", err)
	}
}

func TestHTMLSource_ReadError(t *testing.T) {
	src := NewHTMLSource(failingReader{}, 0, 0)
	_, err := src.Next()
	if !errors.Is(err, internalerr.ErrDocumentRead) {
		t.Fatalf("expected ErrDocumentRead, got %v", err)
	}
}

// sections streams n sibling sections without materializing the document.
func sections(n int) io.Reader {
	readers := []io.Reader{strings.NewReader("<html><body>")}
	for i := 0; i < n; i++ {
		readers = append(readers, strings.NewReader(fmt.Sprintf(
			"<div><h2>Section %d</h2><p>Foreign currency exchange rate risk paragraph %d.</p></div>", i, i)))
	}
	readers = append(readers, strings.NewReader("</body></html>"))
	return io.MultiReader(readers...)
}

// wrappedTables streams one body-level div around n single-cell tables.
func wrappedTables(n int) io.Reader {
	readers := []io.Reader{strings.NewReader("<html><body><div>")}
	for i := 0; i < n; i++ {
		readers = append(readers, strings.NewReader(fmt.Sprintf(
			"<table><tr><td>cell %d value 1,234</td></tr></table>", i)))
	}
	readers = append(readers, strings.NewReader("</div></body></html>"))
	return io.MultiReader(readers...)
}

func drain(t *testing.T, r io.Reader) HTMLStats {
	t.Helper()
	src := NewHTMLSource(r, 0, 0)
	for {
		_, err := src.Next()
		if err == io.EOF {
			return src.Stats()
		}
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestHTMLSource_WrappedTablesDoNotAccumulate(t *testing.T) {
	small, large := drain(t, wrappedTables(10)), drain(t, wrappedTables(10000))
	if small.PeakDepth != large.PeakDepth {
		t.Errorf("peak depth grew with length: %d vs %d", small.PeakDepth, large.PeakDepth)
	}
	if large.PeakBuffered > 64 {
		t.Errorf("pending text grew with length: %d vs %d bytes", small.PeakBuffered, large.PeakBuffered)
	}
	if large.Nodes != 0 {
		t.Errorf("table cells should not surface through the wrapper, got %d nodes", large.Nodes)
	}
}

func TestHTMLSource_MemoryFollowsDepthNotLength(t *testing.T) {
	run := func(n int) HTMLStats {
		src := NewHTMLSource(sections(n), 0, 0)
		for {
			_, err := src.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("n=%d: %v", n, err)
			}
		}
		return src.Stats()
	}

	small, large := run(10), run(5000)
	if small.PeakDepth != large.PeakDepth {
		t.Errorf("peak depth grew with length: %d vs %d", small.PeakDepth, large.PeakDepth)
	}
	if large.PeakBuffered > 256 {
		t.Errorf("pending text grew with length: %d bytes", large.PeakBuffered)
	}
	if large.Nodes != 2*5000 {
		t.Errorf("expected %d nodes, got %d", 2*5000, large.Nodes)
	}
}
