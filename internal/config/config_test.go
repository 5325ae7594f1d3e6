package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/fxgest/internal/internalerr"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"INPUT_ROOT", "OUTPUT_ROOT", "EXTENSIONS", "WORKER_COUNT", "RUN_TTL", "READ_RETRIES"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.InputRoot != "parsed_reports_html" {
		t.Errorf("expected default input root, got %q", cfg.InputRoot)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("expected sequential default, got %d workers", cfg.WorkerCount)
	}
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != ".html" {
		t.Errorf("unexpected default extensions %v", cfg.Extensions)
	}
	if cfg.RunTTL != time.Hour {
		t.Errorf("expected 1h ttl, got %s", cfg.RunTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EXTENSIONS", "html, TXT ,.md,")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("READ_RETRIES", "4")
	t.Setenv("RUN_TTL", "5m")

	cfg := Load()
	want := []string{".html", ".txt", ".md"}
	if len(cfg.Extensions) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Extensions)
	}
	for i := range want {
		if cfg.Extensions[i] != want[i] {
			t.Errorf("extension %d: expected %q, got %q", i, want[i], cfg.Extensions[i])
		}
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("non-positive worker count should fall back to 1, got %d", cfg.WorkerCount)
	}
	if cfg.ReadRetries != 4 {
		t.Errorf("expected 4 retries, got %d", cfg.ReadRetries)
	}
	if cfg.RunTTL != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.RunTTL)
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	cfg := Config{InputRoot: "in", OutputRoot: "out", Extensions: []string{".html"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := cfg.ValidateServer()
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	cfg.APIKey = "secret"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultTaxonomy_Valid(t *testing.T) {
	tax := DefaultTaxonomy()
	if err := tax.Validate(); err != nil {
		t.Fatalf("default taxonomy invalid: %v", err)
	}
	if len(tax.Relevance.Keywords) != 21 {
		t.Errorf("expected 21 relevance keywords, got %d", len(tax.Relevance.Keywords))
	}
	last := tax.Categories[len(tax.Categories)-1]
	if last.Name != "general_fx_risk" || len(last.Keywords) != 0 {
		t.Errorf("expected general_fx_risk catch-all last, got %+v", last)
	}
}

func TestLoadTaxonomy_EmptyPathIsDefault(t *testing.T) {
	tax, err := LoadTaxonomy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tax.Categories) != 4 {
		t.Errorf("expected 4 categories, got %d", len(tax.Categories))
	}
}

func TestLoadTaxonomy_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := `
relevance:
  keywords: [Hedging, "Currency Risk"]
categories:
  - name: swaps
    keywords: ["Cross-Currency Swap"]
  - name: other
    keywords: []
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tax, err := LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tax.Relevance.MinTokens != 5 {
		t.Errorf("expected min_tokens default 5, got %d", tax.Relevance.MinTokens)
	}
	if tax.Relevance.Keywords[1] != "currency risk" {
		t.Errorf("keywords should be lower-cased, got %q", tax.Relevance.Keywords[1])
	}
	if tax.Categories[0].Keywords[0] != "cross-currency swap" {
		t.Errorf("category keywords should be lower-cased, got %q", tax.Categories[0].Keywords[0])
	}
}

func TestLoadTaxonomy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no default", "relevance:\n  keywords: [fx]\ncategories:\n  - name: a\n    keywords: [x]\n"},
		{"two defaults", "relevance:\n  keywords: [fx]\ncategories:\n  - name: a\n  - name: b\n"},
		{"duplicate", "relevance:\n  keywords: [fx]\ncategories:\n  - name: a\n    keywords: [x]\n  - name: a\n"},
		{"no keywords", "categories:\n  - name: a\n"},
		{"no categories", "relevance:\n  keywords: [fx]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "taxonomy.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadTaxonomy(path)
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadTaxonomy_MissingFile(t *testing.T) {
	_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
