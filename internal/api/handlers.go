// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ccan-dev/ccan/internal/analysis"
	"github.com/ccan-dev/ccan/internal/config"
	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/persistence/sqlite"
)

const listLimit = 50

// AnalysisRequest overrides individual settings of the server configuration
// for a single run. Omitted fields keep the configured value.
type AnalysisRequest struct {
	Repository string `json:"repository,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"`
	Binning    string `json:"binning,omitempty"`
	ChangesMin *int   `json:"changes_min,omitempty"`
	FreqMin    *int   `json:"freq_min,omitempty"`
}

func (req AnalysisRequest) apply(cfg config.Config) config.Config {
	if req.Repository != "" {
		cfg.Repository = req.Repository
	}
	if req.Branch != "" {
		cfg.Branch = req.Branch
	}
	if req.Algorithm != "" {
		cfg.Algorithm = req.Algorithm
	}
	if req.Binning != "" {
		cfg.Binning = req.Binning
	}
	if req.ChangesMin != nil {
		cfg.ChangesMin = *req.ChangesMin
	}
	if req.FreqMin != nil {
		cfg.FreqMin = *req.FreqMin
	}
	return cfg
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Debug().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := req.apply(s.cfg)
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.Trigger(r.Context(), cfg)
	switch {
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil && a == nil:
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, a)
	default:
		writeJSON(w, http.StatusCreated, a)
	}
}

// Trigger runs one analysis with the given configuration under the
// single-flight guard. Watch mode and the POST handler both funnel through
// here, so at most one analysis runs at any time.
func (s *Server) Trigger(ctx context.Context, cfg config.Config) (*analysis.Analysis, error) {
	opts, err := analysisOptions(cfg)
	if err != nil {
		return nil, err
	}

	// Analyses are expensive; only one runs at a time.
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	a, res, runErr := s.run(ctx, opts)
	s.record(ctx, cfg, a)
	if runErr != nil {
		return a, runErr
	}

	s.ripples.Set(a.ID, res.Ripples, s.cfg.CacheTTL)
	return a, nil
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List(r.Context(), listLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []sqlite.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown analysis")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRipples(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ripples, ok := s.ripples.Get(id)
	if !ok {
		// Ripples are only retained for the cache TTL after a run.
		writeError(w, http.StatusNotFound, "no ripple data for this analysis")
		return
	}
	writeJSON(w, http.StatusOK, ripples)
}

// record persists the terminal state of a run; failures are logged, not
// surfaced, so a ledger outage never fails an otherwise good analysis.
func (s *Server) record(ctx context.Context, cfg config.Config, a *analysis.Analysis) {
	if s.runs == nil || a == nil {
		return
	}
	logger := log.WithComponentFromContext(ctx, "api")

	row := sqlite.Run{
		ID:         a.ID,
		Repository: cfg.Repository,
		Branch:     cfg.Branch,
		Algorithm:  cfg.Algorithm,
		Binning:    cfg.Binning,
		ChangesMin: float64(cfg.ChangesMin),
		FreqMin:    float64(cfg.FreqMin),
		Status:     string(analysis.StatusRunning),
		StartedAt:  a.StartedAt,
	}
	if err := s.runs.Insert(ctx, row); err != nil {
		logger.Warn().Err(err).Str(log.FieldAnalysisID, a.ID).Msg("could not insert run")
		return
	}

	row.Status = string(a.Status)
	row.FinishedAt = a.FinishedAt
	row.DurationMS = a.Duration.Milliseconds()
	row.Files = a.Files
	row.Commits = a.Commits
	row.Error = a.Error
	if err := s.runs.Finish(ctx, row); err != nil {
		logger.Warn().Err(err).Str(log.FieldAnalysisID, a.ID).Msg("could not finish run")
	}
}

func analysisOptions(cfg config.Config) (analysis.Options, error) {
	mine, err := cfg.MineOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	cc, err := cfg.CoChangeOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	predict, err := cfg.PredictOptions()
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{Mine: mine, CoChange: cc, Predict: predict}, nil
}
