package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/fxgest/internal/internalerr"
	"gopkg.in/yaml.v3"
)

// Taxonomy is the keyword configuration for relevance and categorization.
type Taxonomy struct {
	Relevance  Relevance  `yaml:"relevance"`
	Categories []Category `yaml:"categories"`
}

// Relevance configures the FX relevance filter.
type Relevance struct {
	MinTokens int      `yaml:"min_tokens"`
	Keywords  []string `yaml:"keywords"`
}

// Category is one exposure class. An empty keyword list marks the default.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultTaxonomy returns the built-in FX vocabulary.
func DefaultTaxonomy() *Taxonomy {
	tax := &Taxonomy{
		Relevance: Relevance{
			MinTokens: 5,
			Keywords: []string{
				"fx risk", "foreign exchange", "hedging", "currency risk", "exchange rate",
				"forex", "risk", "derivatives", "forward contract", "swap", "options",
				"currency exposure", "economic exposure", "transaction exposure",
				"translation exposure", "foreign currency", "monetary assets",
				"monetary liabilities", "natural hedge", "synthetic hedge", "risk management",
			},
		},
		Categories: []Category{
			{Name: "transaction_exposure", Keywords: []string{"transaction exposure", "contractual exposure", "cash flow exposure"}},
			{Name: "translation_exposure", Keywords: []string{"translation exposure", "balance sheet exposure"}},
			{Name: "economic_exposure", Keywords: []string{"economic exposure", "competitive exposure"}},
			{Name: "general_fx_risk", Keywords: []string{}},
		},
	}
	return tax
}

// LoadTaxonomy loads a taxonomy from a YAML file. An empty path returns the
// built-in taxonomy.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	if tax.Relevance.MinTokens == 0 {
		tax.Relevance.MinTokens = 5
	}
	tax.normalize()
	if err := tax.Validate(); err != nil {
		return nil, err
	}
	return &tax, nil
}

func (t *Taxonomy) normalize() {
	t.Relevance.Keywords = lowerAll(t.Relevance.Keywords)
	for i := range t.Categories {
		t.Categories[i].Name = strings.TrimSpace(t.Categories[i].Name)
		t.Categories[i].Keywords = lowerAll(t.Categories[i].Keywords)
	}
}

// Validate checks that categorization is total and unambiguous.
func (t *Taxonomy) Validate() error {
	var errs []error
	if t.Relevance.MinTokens < 1 {
		errs = append(errs, errors.New("relevance.min_tokens must be at least 1"))
	}
	if len(t.Relevance.Keywords) == 0 {
		errs = append(errs, errors.New("relevance.keywords is empty"))
	}
	if len(t.Categories) == 0 {
		errs = append(errs, errors.New("no categories"))
	}

	seen := make(map[string]bool)
	defaults := 0
	for _, c := range t.Categories {
		if c.Name == "" {
			errs = append(errs, errors.New("category with empty name"))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("duplicate category %q", c.Name))
		}
		seen[c.Name] = true
		if len(c.Keywords) == 0 {
			defaults++
		}
	}
	if len(t.Categories) > 0 && defaults != 1 {
		errs = append(errs, fmt.Errorf("exactly one category must have an empty keyword list, found %d", defaults))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: taxonomy: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
