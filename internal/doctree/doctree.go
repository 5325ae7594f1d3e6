package doctree

// Kind classifies a node produced by a Source.
type Kind int

const (
	KindTitle   Kind = iota + 1 // document title
	KindHeading                 // section heading (h1-h3 or equivalent)
	KindText                    // text-bearing block (p, div, span or equivalent)
	KindBreak                   // positional marker such as a page boundary
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindHeading:
		return "heading"
	case KindText:
		return "text"
	case KindBreak:
		return "break"
	}
	return "unknown"
}

// Node is one visited element. It is a value: the source keeps no reference
// to it once Next returns, and callers must not expect it to stay reachable
// from anywhere else.
type Node struct {
	Kind Kind
	Tag  string // source element name, e.g. "p", "h2", "page"
	Text string // descendant text not already emitted by a nested node
}

// Source yields nodes in document order. Next returns io.EOF after the last
// node. Close releases any resources held by the source.
type Source interface {
	Next() (Node, error)
	Close() error
}
