package classify

import (
	"fmt"
	"strings"

	"github.com/dgallion1/fxgest/internal/config"
	"github.com/dgallion1/fxgest/internal/internalerr"
)

// Category names an FX exposure class.
type Category string

const (
	TransactionExposure Category = "transaction_exposure"
	TranslationExposure Category = "translation_exposure"
	EconomicExposure    Category = "economic_exposure"
	GeneralFXRisk       Category = "general_fx_risk"
)

type rule struct {
	category Category
	keywords []string // lowercase
}

// Categorizer assigns a fragment to the first category, in declaration order,
// whose keywords occur in it.
type Categorizer struct {
	rules    []rule
	order    []Category
	fallback Category
}

// NewCategorizer builds a categorizer. Exactly one category must have no
// keywords; it becomes the default.
func NewCategorizer(categories []config.Category) (*Categorizer, error) {
	c := &Categorizer{}
	for _, cat := range categories {
		name := Category(cat.Name)
		c.order = append(c.order, name)

		var keywords []string
		for _, kw := range cat.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			if c.fallback != "" {
				return nil, fmt.Errorf("%w: categories %q and %q both lack keywords", internalerr.ErrInvalidConfig, c.fallback, name)
			}
			c.fallback = name
			continue
		}
		c.rules = append(c.rules, rule{category: name, keywords: keywords})
	}
	if c.fallback == "" {
		return nil, fmt.Errorf("%w: no default category", internalerr.ErrInvalidConfig)
	}
	return c, nil
}

// Categorize always returns exactly one category.
func (c *Categorizer) Categorize(text string) Category {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if containsAny(lower, r.keywords) {
			return r.category
		}
	}
	return c.fallback
}

// Order returns the categories in declaration order.
func (c *Categorizer) Order() []Category {
	out := make([]Category, len(c.order))
	copy(out, c.order)
	return out
}
