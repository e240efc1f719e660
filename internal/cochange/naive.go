// SPDX-License-Identifier: MIT

package cochange

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/ccan-dev/ccan/internal/matrix"
)

// naiveModel weighs every co-change by the date distance between the two
// commits involved: changes close in time couple more strongly.
type naiveModel struct{}

// datesDistance builds the pairwise distance matrix over date bins:
// D[i][j] = 1 / smooth(days(d_i - d_j) + 1) for j < i, 1 elsewhere.
func datesDistance(dates []time.Time, smooth func(float64) float64) *mat.Dense {
	n := len(dates)
	if n == 0 {
		return nil
	}
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i - 1; j >= 0; j-- {
			days := int64(dates[i].Sub(dates[j]) / (24 * time.Hour))
			d.Set(i, j, float64(days))
		}
	}
	d.Apply(func(_, _ int, v float64) float64 {
		return 1 / smooth(v+1)
	}, d)
	return d
}

// coefficient sums the date-distance weights over every pair of bins where
// the impacted file changed at bin i and the changed file changed at some
// bin j <= i.
func coefficient(impacted, changed []float64, dist *mat.Dense) float64 {
	var coeff float64
	for i := len(impacted) - 1; i >= 0; i-- {
		if impacted[i] < 1e-5 {
			continue
		}
		for j := i; j >= 0; j-- {
			if math.Abs(changed[j]-1) < 1e-5 {
				coeff += dist.At(i, j)
			}
		}
	}
	return coeff
}

func (naiveModel) Freqs(ctx context.Context, changes *Changes, opts Options) *CCMatrix {
	files := changes.filteredFiles(opts.ChangesMin)
	ccFreqs := matrix.New(files, files, "impacted", "changed")
	if ccFreqs.IsEmpty() {
		return ccFreqs
	}

	dist := datesDistance(changes.Freqs.ColNames(), math.Sqrt)

	// Rows of the filtered matrix map back to rows of the full change
	// matrix by file name.
	rows := make([][]float64, len(files))
	for i, name := range files {
		ri, _ := changes.Freqs.IndexOfRow(name)
		rows[i] = changes.Freqs.Row(ri)
	}

	workers := opts.Parallelism
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	n := len(files)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				ccFreqs.Set(i, j, coefficient(rows[i], rows[j], dist))
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	filterFreqs(ccFreqs, opts.FreqMin)
	return ccFreqs
}

func (naiveModel) Probs(_ *Changes, freqs *CCMatrix, _ Options) *CCMatrix {
	probs := matrix.New(freqs.RowNames(), freqs.RowNames(), "impacted", "changing")
	for j := 0; j < freqs.Cols(); j++ {
		sum := freqs.ColSum(j)
		if sum < 1e-9 {
			continue // zero column stays zero
		}
		for i := 0; i < freqs.Rows(); i++ {
			probs.Set(i, j, freqs.At(i, j)/sum)
		}
	}
	return probs
}
