// SPDX-License-Identifier: MIT

// Package api exposes the analysis service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ccan-dev/ccan/internal/analysis"
	"github.com/ccan-dev/ccan/internal/cache"
	"github.com/ccan-dev/ccan/internal/cochange"
	"github.com/ccan-dev/ccan/internal/config"
	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/metrics"
	"github.com/ccan-dev/ccan/internal/persistence/sqlite"
)

// ErrBusy is returned when an analysis is requested while another runs.
var ErrBusy = errors.New("an analysis is already running")

// RunStore is the slice of the run ledger the server needs.
type RunStore interface {
	Insert(ctx context.Context, r sqlite.Run) error
	Finish(ctx context.Context, r sqlite.Run) error
	Get(ctx context.Context, id string) (sqlite.Run, error)
	List(ctx context.Context, limit int) ([]sqlite.Run, error)
}

// Runner executes one analysis.
type Runner func(ctx context.Context, opts analysis.Options) (*analysis.Analysis, *analysis.Result, error)

// Server serves the analysis API. Analyses run synchronously and are guarded
// by a single-flight flag: at most one runs at a time.
type Server struct {
	cfg     config.Config
	runs    RunStore
	run     Runner
	ripples *cache.Cache[*cochange.RippleProbabilities]
	busy    atomic.Bool
	http    *http.Server
}

// New builds a server. runner may be nil, in which case analyses execute
// through analysis.Run with the provided deps.
func New(cfg config.Config, runs RunStore, runner Runner, deps analysis.Deps) *Server {
	if runner == nil {
		runner = func(ctx context.Context, opts analysis.Options) (*analysis.Analysis, *analysis.Result, error) {
			return analysis.Run(ctx, opts, deps)
		}
	}
	s := &Server{
		cfg:     cfg,
		runs:    runs,
		run:     runner,
		ripples: cache.New[*cochange.RippleProbabilities](time.Minute),
	}
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router assembles the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Use(log.Middleware())
	r.Use(observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(httprate.Limit(
			s.cfg.RateLimitRPM,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		)).Post("/analyses", s.handleCreateAnalysis)
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Get("/analyses/{id}/ripples", s.handleGetRipples)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	logger := log.WithComponent("api")
	logger.Info().
		Str(log.FieldEvent, "server.start").
		Str("listen", s.cfg.Listen).
		Msg("listening")

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Str(log.FieldEvent, "server.stop").Msg("shutting down")
	err := s.http.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close releases server resources without serving.
func (s *Server) Close() {
	s.ripples.Stop()
}

// requestID attaches a request ID to the context and response headers.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}
