package walker

import (
	"strings"

	"github.com/dgallion1/fxgest/internal/classify"
)

// Corpus holds the relevant fragments of one document grouped by category.
type Corpus struct {
	order     []classify.Category
	fragments map[classify.Category][]string
	count     int
}

// NewCorpus renders categories in the given order. Categories outside order
// are appended after it in first-seen order.
func NewCorpus(order []classify.Category) *Corpus {
	return &Corpus{
		order:     append([]classify.Category(nil), order...),
		fragments: make(map[classify.Category][]string),
	}
}

func (c *Corpus) Add(cat classify.Category, fragment string) {
	if _, ok := c.fragments[cat]; !ok && !c.known(cat) {
		c.order = append(c.order, cat)
	}
	c.fragments[cat] = append(c.fragments[cat], fragment)
	c.count++
}

func (c *Corpus) known(cat classify.Category) bool {
	for _, o := range c.order {
		if o == cat {
			return true
		}
	}
	return false
}

// Len returns the number of fragments.
func (c *Corpus) Len() int { return c.count }

// Fragments returns the fragments filed under cat.
func (c *Corpus) Fragments(cat classify.Category) []string {
	return c.fragments[cat]
}

// Render assembles the corpus into the artifact text format: one
// "Category: <name>" block per non-empty category, fragments separated by
// blank lines. An empty corpus renders as "".
func (c *Corpus) Render() string {
	var blocks []string
	for _, cat := range c.order {
		frags := c.fragments[cat]
		if len(frags) == 0 {
			continue
		}
		blocks = append(blocks, "Category: "+string(cat)+"\n\n"+strings.Join(frags, "\n\n"))
	}
	return strings.Join(blocks, "\n\n")
}
