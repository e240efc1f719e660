// SPDX-License-Identifier: MIT

package cochange

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ccan-dev/ccan/internal/log"
)

// PredictOptions selects the change window that seeds a ripple prediction.
type PredictOptions struct {
	Skip  bool
	Since time.Time
	Until time.Time
	Model ModelType
}

// Ripple is a predicted change probability for a single file.
type Ripple struct {
	File string  `json:"file"`
	Prob float64 `json:"prob"`
}

// Predictor estimates ripple change probabilities for a set of changed files.
type Predictor interface {
	Predict(cc *CoChanges, changed []string) []Ripple
}

// RippleProbabilities is the outcome of a prediction: the files that changed
// in the window and the per-file ripple probabilities.
type RippleProbabilities struct {
	ChangingFiles []string `json:"changing_files"`
	Ripples       []Ripple `json:"ripples"`
}

// Predict derives ripple probabilities from the coupling matrices. Files that
// changed within [Since, Until] seed the prediction; an empty window or a
// skipped prediction yields an empty result.
func Predict(ctx context.Context, cc *CoChanges, changes *Changes, opts PredictOptions) *RippleProbabilities {
	if opts.Skip {
		return &RippleProbabilities{}
	}

	var changing []string
	cols := changes.Freqs.ColNames()
	selected := make([]int, 0, len(cols))
	for j, bin := range cols {
		if !bin.Before(opts.Since) && !bin.After(opts.Until) {
			selected = append(selected, j)
		}
	}
	if len(selected) == 0 {
		return &RippleProbabilities{}
	}

	for i, name := range changes.Freqs.RowNames() {
		var sum float64
		for _, j := range selected {
			sum += changes.Freqs.At(i, j)
		}
		if sum > 0 {
			changing = append(changing, name)
		}
	}
	if len(changing) == 0 {
		return &RippleProbabilities{}
	}

	logger := log.WithComponentFromContext(ctx, "cochange")
	logger.Debug().
		Str(log.FieldEvent, "predict.start").
		Str(log.FieldAlgorithm, opts.Model.String()).
		Int(log.FieldFiles, len(changing)).
		Msg("calculating ripple change probabilities")

	model := opts.Model.New()
	return &RippleProbabilities{
		ChangingFiles: changing,
		Ripples:       model.Predict(cc, changing),
	}
}

// Probabilities returns the raw probability values in ripple order.
func (r *RippleProbabilities) Probabilities() []float64 {
	out := make([]float64, len(r.Ripples))
	for i, ripple := range r.Ripples {
		out[i] = ripple.Prob
	}
	return out
}

// Sorted returns the ripples with probability of at least min, sorted by
// probability descending.
func (r *RippleProbabilities) Sorted(min float64) []Ripple {
	out := make([]Ripple, 0, len(r.Ripples))
	for _, ripple := range r.Ripples {
		if ripple.Prob >= min {
			out = append(out, ripple)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prob > out[j].Prob })
	return out
}

// WriteTable renders the human-readable prediction table.
func (r *RippleProbabilities) WriteTable(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Changing files in period: %v\n", r.ChangingFiles); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Change Probability     File"); err != nil {
		return err
	}
	for _, ripple := range r.Sorted(0.01) {
		if _, err := fmt.Fprintf(w, "              %0.2f     %s\n", ripple.Prob, ripple.File); err != nil {
			return err
		}
	}
	return nil
}

// averageColumns is the shared prediction core: average the probability
// columns of the changed files.
func averageColumns(cc *CoChanges, changed []string) []Ripple {
	cols := cc.Probs.SliceCols(changed)
	if len(cols) == 0 {
		return nil
	}

	n := float64(len(cols))
	out := make([]Ripple, cc.Probs.Rows())
	for i, name := range cc.Probs.RowNames() {
		var sum float64
		for _, j := range cols {
			sum += cc.Probs.At(i, j)
		}
		out[i] = Ripple{File: name, Prob: sum / n}
	}
	return out
}

func (naiveModel) Predict(cc *CoChanges, changed []string) []Ripple {
	return averageColumns(cc, changed)
}

// The bayes model has no dedicated predictor; it falls back to averaging
// the posterior columns.
func (bayesModel) Predict(cc *CoChanges, changed []string) []Ripple {
	return averageColumns(cc, changed)
}

func (mixedModel) Predict(cc *CoChanges, changed []string) []Ripple {
	return averageColumns(cc, changed)
}
