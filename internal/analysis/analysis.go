// SPDX-License-Identifier: MIT

// Package analysis orchestrates a full change-coupling run: mine the git
// history, build the change matrix, compute coupling and predict ripples.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ccan-dev/ccan/internal/cochange"
	"github.com/ccan-dev/ccan/internal/gitmine"
	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/metrics"
)

var tracer = otel.Tracer("github.com/ccan-dev/ccan/internal/analysis")

// Status is the lifecycle state of an analysis run.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Options bundles the per-phase settings of a run.
type Options struct {
	Mine     gitmine.Options
	CoChange cochange.Options
	Predict  cochange.PredictOptions
}

// HistoryCache is the subset of the history store the runner needs.
type HistoryCache interface {
	Get(key string) (*gitmine.History, bool)
	Put(key string, h *gitmine.History) error
}

// Recorder receives run metrics.
type Recorder interface {
	RecordAnalysis(outcome string, duration time.Duration)
	RecordAnalysisSize(files, bins int)
	IncHistoryCache(result string)
}

// Miner produces a change history for the given options.
type Miner func(ctx context.Context, opts gitmine.Options) (*gitmine.History, error)

// Deps are the collaborators of a run. Zero values select the production
// implementations; a nil Cache disables history caching.
type Deps struct {
	Cache   HistoryCache
	Metrics Recorder
	Clock   func() time.Time
	Miner   Miner
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = PromRecorder{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Miner == nil {
		d.Miner = gitmine.Mine
	}
	return d
}

// PromRecorder forwards run metrics to the Prometheus collectors.
type PromRecorder struct{}

func (PromRecorder) RecordAnalysis(outcome string, duration time.Duration) {
	metrics.RecordAnalysis(outcome, duration)
}
func (PromRecorder) RecordAnalysisSize(files, bins int) { metrics.RecordAnalysisSize(files, bins) }
func (PromRecorder) IncHistoryCache(result string)      { metrics.IncHistoryCache(result) }

// Analysis describes one run.
type Analysis struct {
	ID         string        `json:"id"`
	Status     Status        `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Files      int           `json:"files"`
	Commits    int           `json:"commits"`
	Error      string        `json:"error,omitempty"`
}

// Result carries the computed artifacts of a completed run.
type Result struct {
	History   *gitmine.History
	Changes   *cochange.Changes
	CoChanges *cochange.CoChanges
	Ripples   *cochange.RippleProbabilities
}

// Run executes one analysis end to end. The returned Analysis always carries
// the terminal status and duration, even when the run fails.
func Run(ctx context.Context, opts Options, deps Deps) (*Analysis, *Result, error) {
	deps = deps.withDefaults()

	a := &Analysis{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: deps.Clock(),
	}
	ctx = log.ContextWithAnalysisID(ctx, a.ID)

	ctx, span := tracer.Start(ctx, "ccan.analysis", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.id", a.ID),
		attribute.String("analysis.repository", opts.Mine.Repository),
		attribute.String("analysis.algorithm", opts.CoChange.Model.String()),
	)

	logger := log.WithComponentFromContext(ctx, "analysis")
	logger.Info().
		Str(log.FieldEvent, "analysis.start").
		Str(log.FieldRepository, opts.Mine.Repository).
		Str(log.FieldBranch, opts.Mine.Branch).
		Str(log.FieldAlgorithm, opts.CoChange.Model.String()).
		Str(log.FieldBinning, opts.Mine.Binning.String()).
		Msg("starting analysis")

	finish := func(status Status, err error) {
		a.Status = status
		a.FinishedAt = deps.Clock()
		a.Duration = a.FinishedAt.Sub(a.StartedAt)
		if err != nil {
			a.Error = err.Error()
			span.RecordError(err)
		}
		deps.Metrics.RecordAnalysis(string(status), a.Duration)
	}

	history, err := mineHistory(ctx, opts.Mine, deps)
	if err != nil {
		finish(StatusFailed, err)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "analysis.failed").
			Int64(log.FieldDurationMS, a.Duration.Milliseconds()).
			Msg("analysis failed")
		return a, nil, err
	}

	changes := cochange.FromHistory(history)
	a.Files = changes.Freqs.Rows()
	a.Commits = changes.Freqs.Cols()
	deps.Metrics.RecordAnalysisSize(a.Files, a.Commits)

	cc := cochange.Compute(ctx, changes, opts.CoChange)
	ripples := cochange.Predict(ctx, cc, changes, opts.Predict)

	finish(StatusCompleted, nil)
	logger.Info().
		Str(log.FieldEvent, "analysis.complete").
		Int(log.FieldFiles, a.Files).
		Int(log.FieldCommits, a.Commits).
		Int64(log.FieldDurationMS, a.Duration.Milliseconds()).
		Msg("analysis complete")

	return a, &Result{
		History:   history,
		Changes:   changes,
		CoChanges: cc,
		Ripples:   ripples,
	}, nil
}

func mineHistory(ctx context.Context, opts gitmine.Options, deps Deps) (*gitmine.History, error) {
	ctx, span := tracer.Start(ctx, "ccan.analysis.mine")
	defer span.End()

	if deps.Cache == nil {
		h, err := deps.Miner(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("mine history: %w", err)
		}
		return h, nil
	}

	key := opts.Key()
	if h, ok := deps.Cache.Get(key); ok {
		deps.Metrics.IncHistoryCache("hit")
		logger := log.WithComponentFromContext(ctx, "analysis")
		logger.Debug().
			Str(log.FieldEvent, "analysis.cache_hit").
			Msg("reusing cached history")
		return h, nil
	}
	deps.Metrics.IncHistoryCache("miss")

	h, err := deps.Miner(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mine history: %w", err)
	}
	if err := deps.Cache.Put(key, h); err != nil {
		logger := log.WithComponentFromContext(ctx, "analysis")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "analysis.cache_put_failed").
			Msg("could not cache mined history")
	}
	return h, nil
}
