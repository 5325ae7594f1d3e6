// Command fxgest runs one aggregation pass over the filing tree and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgallion1/fxgest/internal/app"
	"github.com/dgallion1/fxgest/internal/config"
	"github.com/dgallion1/fxgest/internal/pipeline"
)

func main() {
	cfg := config.Load()

	input := flag.String("input", cfg.InputRoot, "root of the per-company filing tree")
	output := flag.String("output", cfg.OutputRoot, "root of the per-company output tree")
	tickers := flag.String("tickers", "", "comma separated tickers to process (default: all)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg.InputRoot = *input
	cfg.OutputRoot = *output
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	selected := splitTickers(*tickers)
	for _, t := range selected {
		if !pipeline.ValidTicker(t) {
			log.Error("invalid configuration", "error", fmt.Sprintf("invalid ticker %q", t))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	snap := a.Orchestrator.RunSync(ctx, selected)

	for _, c := range snap.Companies {
		if c.Status == pipeline.CompanyFailed {
			log.Warn("company failed", "ticker", c.Ticker, "reason", c.Reason)
		}
	}
	log.Info("run finished",
		"run_id", snap.ID,
		"status", snap.Status,
		"persisted", snap.Counts[pipeline.CompanyPersisted],
		"skipped", snap.Counts[pipeline.CompanySkipped],
		"no_content", snap.Counts[pipeline.CompanyNoContent],
		"failed", snap.Counts[pipeline.CompanyFailed],
		"cancelled", snap.Counts[pipeline.CompanyCancelled],
	)
	if snap.Status == pipeline.RunFailed {
		fmt.Fprintln(os.Stderr, "fxgest:", snap.Error)
		a.Close()
		os.Exit(1)
	}
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
