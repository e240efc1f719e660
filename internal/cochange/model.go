// SPDX-License-Identifier: MIT

package cochange

import (
	"context"

	"github.com/ccan-dev/ccan/internal/matrix"
)

// mixedModel pairs the naive frequency calculation with bayes probabilities.
type mixedModel struct{}

func (mixedModel) Freqs(ctx context.Context, changes *Changes, opts Options) *CCMatrix {
	return naiveModel{}.Freqs(ctx, changes, opts)
}

func (mixedModel) Probs(changes *Changes, freqs *CCMatrix, opts Options) *CCMatrix {
	return bayesModel{}.Probs(changes, freqs, opts)
}

// nopModel skips the computation; useful for mining-only runs.
type nopModel struct{}

func (nopModel) Freqs(_ context.Context, _ *Changes, _ Options) *CCMatrix {
	return matrix.New[string, string](nil, nil, "", "")
}

func (nopModel) Probs(_ *Changes, _ *CCMatrix, _ Options) *CCMatrix {
	return matrix.New[string, string](nil, nil, "", "")
}

func (nopModel) Predict(_ *CoChanges, _ []string) []Ripple {
	return nil
}
