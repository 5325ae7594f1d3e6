package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/fxgest/internal/internalerr"
	"github.com/dgallion1/fxgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleListCompanies lists tickers that have an output directory.
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	tickers, err := s.orchestrator.Aggregator().PersistedCompanies(r.Context())
	if err != nil {
		jsonError(w, "failed to list companies: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"companies": tickers})
}

// handleCorpus streams the persisted corpus of one company.
func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if !pipeline.ValidTicker(ticker) {
		jsonError(w, "invalid ticker", http.StatusBadRequest)
		return
	}

	artifact, err := s.orchestrator.Aggregator().Artifact(r.Context(), ticker)
	if errors.Is(err, internalerr.ErrNotFound) {
		jsonError(w, "no corpus for "+ticker, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to locate corpus: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rc, err := s.fs.OpenURL(r.Context(), artifact)
	if err != nil {
		jsonError(w, "failed to open corpus: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn("corpus stream interrupted", "ticker", ticker, "error", err)
	}
}

// handleHistory returns the ledger entries of one company.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "ledger disabled", http.StatusNotFound)
		return
	}
	ticker := chi.URLParam(r, "ticker")
	if !pipeline.ValidTicker(ticker) {
		jsonError(w, "invalid ticker", http.StatusBadRequest)
		return
	}
	entries, err := s.history.History(r.Context(), ticker)
	if err != nil {
		jsonError(w, "failed to read history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ticker": ticker, "history": entries})
}
