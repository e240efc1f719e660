// SPDX-License-Identifier: MIT

package cochange

import (
	"sort"
	"time"

	"github.com/ccan-dev/ccan/internal/gitmine"
	"github.com/ccan-dev/ccan/internal/matrix"
)

// ChangeMatrix is a file x date-bin matrix of change counts.
type ChangeMatrix = matrix.Named[string, time.Time]

// Changes holds the per-file change history derived from mined deltas.
type Changes struct {
	// Freqs counts changes per file (rows) and date bin (columns); columns
	// are strictly increasing in time.
	Freqs *ChangeMatrix
	// TotalFreq is the total change count per file, aligned with Freqs rows.
	TotalFreq []int
	// TotalProb is TotalFreq normalised by the number of files.
	TotalProb []float64
}

// FromHistory builds the change matrix from a mined history.
func FromHistory(h *gitmine.History) *Changes {
	seen := make(map[string]struct{})
	var files []string
	for _, d := range h.Deltas {
		for _, f := range d.NewFiles {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)

	bins := make([]time.Time, 0, len(h.Deltas))
	for _, d := range h.Deltas {
		bins = append(bins, d.Bin)
	}

	freqs := matrix.New(files, bins, "files", "dates")
	for _, d := range h.Deltas {
		col, ok := freqs.IndexOfCol(d.Bin)
		if !ok {
			continue
		}
		for _, f := range d.NewFiles {
			if row, ok := freqs.IndexOfRow(f); ok {
				freqs.Add(row, col, 1)
			}
		}
	}

	n := len(files)
	totalFreq := make([]int, n)
	totalProb := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := freqs.RowSum(i)
		totalFreq[i] = int(sum)
		totalProb[i] = sum / float64(n)
	}

	return &Changes{Freqs: freqs, TotalFreq: totalFreq, TotalProb: totalProb}
}

// filteredFiles returns the files with at least changesMin total changes, in
// row order.
func (c *Changes) filteredFiles(changesMin int) []string {
	var out []string
	for i, name := range c.Freqs.RowNames() {
		if c.TotalFreq[i] >= changesMin {
			out = append(out, name)
		}
	}
	return out
}
