package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/fxgest/internal/doctree"
)

func TestMarkdownParser_HeadingsAndBlocks(t *testing.T) {
	input := `# Title

Intro text.

## Market Risk

We are exposed to **foreign currency** movements.

#### Deep heading

- first item
- second item
`
	src, err := (&MarkdownParser{}).Open(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nodes := collect(t, src)

	want := []doctree.Node{
		{Kind: doctree.KindHeading, Tag: "h1", Text: "Title"},
		{Kind: doctree.KindText, Tag: "paragraph", Text: "Intro text."},
		{Kind: doctree.KindHeading, Tag: "h2", Text: "Market Risk"},
		{Kind: doctree.KindText, Tag: "paragraph", Text: "We are exposed to foreign currency movements."},
		{Kind: doctree.KindText, Tag: "heading", Text: "Deep heading"},
		{Kind: doctree.KindText, Tag: "list", Text: "first item second item"},
	}
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d: %+v", len(want), len(nodes), nodes)
	}
	for i, w := range want {
		if nodes[i] != w {
			t.Errorf("node[%d] = %+v, want %+v", i, nodes[i], w)
		}
	}
}

func TestMarkdownParser_CodeBlock(t *testing.T) {
	input := "```\nhedging table\n```\n"
	src, _ := (&MarkdownParser{}).Open(strings.NewReader(input), "code.md")
	nodes := collect(t, src)
	if len(nodes) != 1 || nodes[0].Text != "hedging table" {
		t.Fatalf("unexpected nodes %+v", nodes)
	}
}

func TestMarkdownParser_Empty(t *testing.T) {
	src, _ := (&MarkdownParser{}).Open(strings.NewReader(""), "empty.md")
	if nodes := collect(t, src); len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(nodes))
	}
}
