// SPDX-License-Identifier: MIT

package cochange

import (
	"context"

	"github.com/ccan-dev/ccan/internal/matrix"
)

// bayesModel counts joint changes and derives posterior probabilities from
// the joint distribution.
type bayesModel struct{}

// coChangeCount counts the bins in which both files changed.
func coChangeCount(a, b []float64) float64 {
	var count float64
	for i := range a {
		if a[i] > 0 && b[i] > 0 {
			count++
		}
	}
	return count
}

func (bayesModel) Freqs(_ context.Context, changes *Changes, opts Options) *CCMatrix {
	files := changes.filteredFiles(opts.ChangesMin)
	ccFreqs := matrix.New(files, files, "impacted", "changed")
	if ccFreqs.IsEmpty() {
		return ccFreqs
	}

	rows := make([][]float64, len(files))
	for i, name := range files {
		ri, _ := changes.Freqs.IndexOfRow(name)
		rows[i] = changes.Freqs.Row(ri)
	}

	n := len(files)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			ccFreqs.Set(i, j, coChangeCount(rows[i], rows[j]))
		}
	}

	filterFreqs(ccFreqs, opts.FreqMin)
	return ccFreqs
}

func (bayesModel) Probs(_ *Changes, freqs *CCMatrix, _ Options) *CCMatrix {
	probs := matrix.New(freqs.RowNames(), freqs.RowNames(), "posteriori", "priori")
	sum := freqs.Sum()
	if sum < 1e-6 {
		return probs
	}

	// joint[i][j] = freq / total; posterior[i][j] = joint / evidence(row i)
	n := freqs.Rows()
	for i := 0; i < n; i++ {
		evidence := freqs.RowSum(i) / sum
		if evidence < 1e-6 {
			continue
		}
		for j := 0; j < n; j++ {
			joint := freqs.At(i, j) / sum
			probs.Set(i, j, joint/evidence)
		}
	}
	return probs
}
