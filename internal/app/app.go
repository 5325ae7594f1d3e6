// Package app assembles the extraction pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/fxgest/internal/classify"
	"github.com/dgallion1/fxgest/internal/config"
	"github.com/dgallion1/fxgest/internal/extract"
	"github.com/dgallion1/fxgest/internal/ledger"
	"github.com/dgallion1/fxgest/internal/parser"
	"github.com/dgallion1/fxgest/internal/pipeline"
	"github.com/dgallion1/fxgest/internal/walker"
	"github.com/viant/afs"
)

// App holds the wired components shared by the CLI and the HTTP server.
type App struct {
	FS           afs.Service
	Stats        *extract.Stats
	Ledger       *ledger.Ledger // nil when LEDGER_PATH is unset
	Orchestrator *pipeline.Orchestrator
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	tax, err := config.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	categorizer, err := classify.NewCategorizer(tax.Categories)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	w := walker.New(classify.NewClassifier(tax.Relevance), categorizer)

	fs := afs.New()
	stats := extract.NewStats(time.Hour)
	ext := extract.New(fs, w, parser.Options{
		MaxNestingDepth:      cfg.MaxNestingDepth,
		MaxTokenBytes:        cfg.MaxTokenBytes,
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
	}, stats, log)

	a := &App{FS: fs, Stats: stats}

	// A nil *Ledger must not reach the pipeline as a non-nil interface.
	var recorder pipeline.RunRecorder
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(ctx, cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.Ledger = l
		recorder = l
	}

	agg, err := pipeline.NewAggregator(fs, ext, recorder, pipeline.Settings{
		InputRoot:   cfg.InputRoot,
		OutputRoot:  cfg.OutputRoot,
		Extensions:  cfg.Extensions,
		ReadRetries: cfg.ReadRetries,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Orchestrator = pipeline.NewOrchestrator(agg, recorder, pipeline.Options{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		RunTTL:       cfg.RunTTL,
	}, log)

	log.Info("pipeline ready",
		"input_root", cfg.InputRoot,
		"output_root", cfg.OutputRoot,
		"extensions", cfg.Extensions,
		"workers", cfg.WorkerCount,
		"ledger", cfg.LedgerPath != "",
	)
	return a, nil
}

// Close releases the ledger.
func (a *App) Close() error {
	if a.Ledger == nil {
		return nil
	}
	return a.Ledger.Close()
}
