// SPDX-License-Identifier: MIT

// Package cochange computes file change-coupling from mined git histories:
// how often file pairs change together, and which files are likely to need
// a ripple change once a given set of files has changed.
package cochange

import (
	"context"

	"github.com/ccan-dev/ccan/internal/log"
	"github.com/ccan-dev/ccan/internal/matrix"
)

// CCMatrix is a square coupling matrix; rows and columns are file names.
type CCMatrix = matrix.Named[string, string]

// CoChanges bundles the co-change frequency and probability matrices.
type CoChanges struct {
	Freqs *CCMatrix
	Probs *CCMatrix
}

// FreqsCalculator computes the co-change frequency matrix.
type FreqsCalculator interface {
	Freqs(ctx context.Context, changes *Changes, opts Options) *CCMatrix
}

// ProbsCalculator derives the probability matrix from frequencies.
type ProbsCalculator interface {
	Probs(changes *Changes, freqs *CCMatrix, opts Options) *CCMatrix
}

// Model is a complete coupling model.
type Model interface {
	FreqsCalculator
	ProbsCalculator
	Predictor
}

// Compute runs the selected model over the change history.
func Compute(ctx context.Context, changes *Changes, opts Options) *CoChanges {
	logger := log.WithComponentFromContext(ctx, "cochange")

	model := opts.Model.New()
	logger.Debug().
		Str(log.FieldEvent, "cochange.freqs").
		Str(log.FieldAlgorithm, opts.Model.String()).
		Int(log.FieldFiles, changes.Freqs.Rows()).
		Int(log.FieldCommits, changes.Freqs.Cols()).
		Msg("calculating co-change frequencies")
	freqs := model.Freqs(ctx, changes, opts)

	logger.Debug().
		Str(log.FieldEvent, "cochange.probs").
		Int(log.FieldFiles, freqs.Rows()).
		Msg("calculating co-change probabilities")
	probs := model.Probs(changes, freqs, opts)

	return &CoChanges{Freqs: freqs, Probs: probs}
}

// filterFreqs zeroes frequencies at or below the threshold.
func filterFreqs(freqs *CCMatrix, freqMin int) {
	min := float64(freqMin)
	freqs.Apply(func(v float64) float64 {
		if v <= min {
			return 0
		}
		return v
	})
}
