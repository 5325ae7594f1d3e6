package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/fxgest/internal/config"
	"github.com/dgallion1/fxgest/internal/extract"
	"github.com/dgallion1/fxgest/internal/ledger"
	"github.com/dgallion1/fxgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/afs"
)

// HistorySource serves recorded company outcomes; *ledger.Ledger is one.
type HistorySource interface {
	History(ctx context.Context, ticker string) ([]ledger.Entry, error)
}

// Server is the HTTP API server for fxgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	fs           afs.Service
	stats        *extract.Stats
	history      HistorySource
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. history may be nil when
// the ledger is disabled.
func NewServer(orch *pipeline.Orchestrator, fs afs.Service, stats *extract.Stats, history HistorySource, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		fs:           fs,
		stats:        stats,
		history:      history,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/runs", s.handleStartRun)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Delete("/api/runs/{runID}", s.handleCancelRun)

		r.Get("/api/companies", s.handleListCompanies)
		r.Get("/api/companies/{ticker}/corpus", s.handleCorpus)
		r.Get("/api/companies/{ticker}/history", s.handleHistory)

		r.Get("/api/stats/extract", s.handleExtractStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
