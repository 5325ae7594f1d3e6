package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Filing tree and output tree (local paths or afs URLs)
	InputRoot  string
	OutputRoot string
	Extensions []string

	// Keyword taxonomy; empty means DefaultTaxonomy.
	TaxonomyPath string

	// Run ledger; empty disables it.
	LedgerPath string

	// Run pool
	WorkerCount  int
	MaxQueueSize int
	ReadRetries  int

	// Traversal bounds
	MaxNestingDepth int
	MaxTokenBytes   int

	// Run state
	RunTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads the environment, after applying a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("FXGEST_API_KEY"),

		InputRoot:  envOr("INPUT_ROOT", "parsed_reports_html"),
		OutputRoot: envOr("OUTPUT_ROOT", "extracted_qualitative_data"),
		Extensions: envList("EXTENSIONS", []string{".html", ".htm"}),

		TaxonomyPath: os.Getenv("TAXONOMY_PATH"),
		LedgerPath:   os.Getenv("LEDGER_PATH"),

		WorkerCount:  envInt("WORKER_COUNT", 1),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 16),
		ReadRetries:  envInt("READ_RETRIES", 1),

		MaxNestingDepth: envInt("MAX_NESTING_DEPTH", 512),
		MaxTokenBytes:   envInt("MAX_TOKEN_BYTES", 8<<20),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.MaxNestingDepth <= 0 {
		cfg.MaxNestingDepth = 512
	}
	if cfg.MaxTokenBytes <= 0 {
		cfg.MaxTokenBytes = 8 << 20
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings every entry point needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputRoot) == "" {
		return fmt.Errorf("%w: INPUT_ROOT is required", internalerr.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return fmt.Errorf("%w: OUTPUT_ROOT is required", internalerr.ErrInvalidConfig)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: EXTENSIONS must name at least one extension", internalerr.ErrInvalidConfig)
	}
	return nil
}

// ValidateServer additionally checks what the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: FXGEST_API_KEY is required", internalerr.ErrInvalidConfig)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList parses a comma separated list of extensions, lower-cased and
// dot-prefixed.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
