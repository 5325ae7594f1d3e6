package classify

import (
	"regexp"
	"strings"

	"github.com/dgallion1/fxgest/internal/config"
)

var urlLike = regexp.MustCompile(`(?i)https?://|www\.`)

// Classifier decides whether a fragment carries FX risk content.
type Classifier struct {
	keywords  []string // lowercase
	minTokens int
}

// NewClassifier builds a classifier from the relevance section of a taxonomy.
func NewClassifier(r config.Relevance) *Classifier {
	keywords := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	minTokens := r.MinTokens
	if minTokens < 1 {
		minTokens = 1
	}
	return &Classifier{keywords: keywords, minTokens: minTokens}
}

// IsRelevant rejects link noise and fragments shorter than the token minimum,
// then reports whether any keyword occurs as a case-insensitive substring.
// Substrings inside longer words count.
func (c *Classifier) IsRelevant(text string) bool {
	if urlLike.MatchString(text) {
		return false
	}
	if len(strings.Fields(text)) < c.minTokens {
		return false
	}
	return containsAny(strings.ToLower(text), c.keywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
