// Package walker turns a stream of document nodes into a categorized corpus.
// It keeps only the current company and section between nodes; node values
// are dropped as soon as they are classified.
package walker

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/dgallion1/fxgest/internal/classify"
	"github.com/dgallion1/fxgest/internal/doctree"
)

const (
	UnknownCompany = "Unknown Company"
	UnknownSection = "Unknown Section"
)

// Walker classifies the text nodes of one document at a time. It holds no
// per-document state and is safe for concurrent use.
type Walker struct {
	classifier  *classify.Classifier
	categorizer *classify.Categorizer
}

func New(classifier *classify.Classifier, categorizer *classify.Categorizer) *Walker {
	return &Walker{classifier: classifier, categorizer: categorizer}
}

// Walk drains src. The returned company is UnknownCompany when the document
// has neither a title nor a heading. On error the partial corpus is
// discarded.
func (w *Walker) Walk(src doctree.Source) (string, *Corpus, error) {
	company := UnknownCompany
	section := UnknownSection
	corpus := NewCorpus(w.categorizer.Order())

	for {
		node, err := src.Next()
		if errors.Is(err, io.EOF) {
			return company, corpus, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("walk: %w", err)
		}

		switch node.Kind {
		case doctree.KindTitle:
			if company == UnknownCompany {
				if name := companyFromTitle(node.Text); name != "" {
					company = name
				}
			}
		case doctree.KindHeading:
			heading := strings.Join(strings.Fields(node.Text), " ")
			if heading == "" {
				continue
			}
			section = heading
			if company == UnknownCompany {
				company = heading
			}
		case doctree.KindBreak:
			section = node.Text
		case doctree.KindText:
			raw := html.UnescapeString(node.Text)
			if !w.classifier.IsRelevant(raw) {
				continue
			}
			cleaned := classify.Normalize(raw)
			if cleaned == "" {
				continue
			}
			corpus.Add(w.categorizer.Categorize(raw), "Section: "+section+"\n\n"+cleaned)
		}
	}
}

// companyFromTitle keeps the part of a filing title before its " - " form
// suffix, e.g. "ABC Corp - 10-Q" names "ABC Corp".
func companyFromTitle(title string) string {
	name, _, _ := strings.Cut(title, " - ")
	return strings.Join(strings.Fields(name), " ")
}
