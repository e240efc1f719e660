// SPDX-License-Identifier: MIT

package cochange

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatesDistance(t *testing.T) {
	dates := []time.Time{bin1, bin2, bin3} // gaps of 1 and 2 days

	d := datesDistance(dates, math.Sqrt)
	require.NotNil(t, d)

	// Upper triangle and diagonal: days=0 -> 1/sqrt(1) = 1.
	assert.InDelta(t, 1.0, d.At(0, 0), 1e-9)
	assert.InDelta(t, 1.0, d.At(0, 2), 1e-9)
	assert.InDelta(t, 1.0, d.At(2, 2), 1e-9)

	// Lower triangle: 1/sqrt(days+1).
	assert.InDelta(t, 1/math.Sqrt(2), d.At(1, 0), 1e-9)
	assert.InDelta(t, 1/math.Sqrt(3), d.At(2, 1), 1e-9)
	assert.InDelta(t, 0.5, d.At(2, 0), 1e-9) // 3 days -> 1/sqrt(4)
}

func TestDatesDistanceEmpty(t *testing.T) {
	assert.Nil(t, datesDistance(nil, math.Sqrt))
}

func TestCoefficient(t *testing.T) {
	dates := []time.Time{bin1, bin2, bin3}
	dist := datesDistance(dates, math.Sqrt)

	a := []float64{1, 1, 1}
	b := []float64{1, 0, 1}

	// a impacted by b: D[2][2] + D[2][0] + D[1][0] + D[0][0]
	assert.InDelta(t, 1+0.5+1/math.Sqrt(2)+1, coefficient(a, b, dist), 1e-9)
	// b impacted by a: D[2][2] + D[2][1] + D[2][0] + D[0][0]
	assert.InDelta(t, 1+1/math.Sqrt(3)+0.5+1, coefficient(b, a, dist), 1e-9)
}

func TestNaiveFreqs(t *testing.T) {
	ch := FromHistory(historyFixture())

	freqs := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2})

	require.Equal(t, []string{"a", "b"}, freqs.RowNames())
	assert.InDelta(t, 3.2071067811865475, freqs.At(0, 1), 1e-9)
	assert.InDelta(t, 3.0773502691896257, freqs.At(1, 0), 1e-9)
	assert.Zero(t, freqs.At(0, 0), "diagonal is never computed")
	assert.Zero(t, freqs.At(1, 1))
}

func TestNaiveFreqsThreshold(t *testing.T) {
	ch := FromHistory(historyFixture())

	freqs := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2, FreqMin: 3})

	// 3.207 survives a threshold of 3, 3.077 survives too.
	assert.Positive(t, freqs.At(0, 1))
	assert.Positive(t, freqs.At(1, 0))

	strict := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2, FreqMin: 4})
	assert.Zero(t, strict.At(0, 1))
	assert.Zero(t, strict.At(1, 0))
}

func TestNaiveFreqsAllFiltered(t *testing.T) {
	ch := FromHistory(historyFixture())

	freqs := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 99})
	assert.True(t, freqs.IsEmpty())
}

func TestNaiveFreqsParallelDeterministic(t *testing.T) {
	ch := FromHistory(historyFixture())

	serial := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 1, Parallelism: 1})
	parallel := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 1, Parallelism: 8})

	require.Equal(t, serial.Rows(), parallel.Rows())
	for i := 0; i < serial.Rows(); i++ {
		for j := 0; j < serial.Cols(); j++ {
			assert.Equal(t, serial.At(i, j), parallel.At(i, j))
		}
	}
}

func TestNaiveProbsColumnNormalised(t *testing.T) {
	ch := FromHistory(historyFixture())
	freqs := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2})

	probs := naiveModel{}.Probs(ch, freqs, Options{})

	assert.InDelta(t, 1.0, probs.At(1, 0), 1e-9)
	assert.InDelta(t, 1.0, probs.At(0, 1), 1e-9)
	assert.Zero(t, probs.At(0, 0))
}

func TestNaiveProbsZeroColumnStaysZero(t *testing.T) {
	ch := FromHistory(historyFixture())
	freqs := naiveModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2, FreqMin: 100})

	probs := naiveModel{}.Probs(ch, freqs, Options{})
	for i := 0; i < probs.Rows(); i++ {
		for j := 0; j < probs.Cols(); j++ {
			assert.Zero(t, probs.At(i, j))
		}
	}
}
