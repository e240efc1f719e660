// SPDX-License-Identifier: MIT

package cochange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoChangeCount(t *testing.T) {
	assert.Equal(t, 2.0, coChangeCount([]float64{1, 1, 1}, []float64{1, 0, 1}))
	assert.Equal(t, 0.0, coChangeCount([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, 0.0, coChangeCount(nil, nil))
}

func TestBayesFreqs(t *testing.T) {
	ch := FromHistory(historyFixture())

	freqs := bayesModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2})

	require.Equal(t, []string{"a", "b"}, freqs.RowNames())
	assert.Equal(t, 2.0, freqs.At(0, 1))
	assert.Equal(t, 2.0, freqs.At(1, 0))
	assert.Zero(t, freqs.At(0, 0))
}

func TestBayesFreqsThreshold(t *testing.T) {
	ch := FromHistory(historyFixture())

	freqs := bayesModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2, FreqMin: 2})
	assert.Zero(t, freqs.At(0, 1), "frequencies at the threshold are zeroed")
}

func TestBayesProbs(t *testing.T) {
	ch := FromHistory(historyFixture())
	freqs := bayesModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2})

	probs := bayesModel{}.Probs(ch, freqs, Options{})

	// joint = 2/4 = 0.5 for both off-diagonal entries; evidence per row is
	// 0.5, so the posterior is 1.
	assert.InDelta(t, 1.0, probs.At(0, 1), 1e-9)
	assert.InDelta(t, 1.0, probs.At(1, 0), 1e-9)
	assert.Zero(t, probs.At(0, 0))
	assert.Equal(t, "posteriori", probs.RowLabel)
	assert.Equal(t, "priori", probs.ColLabel)
}

func TestBayesProbsAllZeroFreqs(t *testing.T) {
	ch := FromHistory(historyFixture())
	freqs := bayesModel{}.Freqs(context.Background(), ch, Options{ChangesMin: 2, FreqMin: 100})

	probs := bayesModel{}.Probs(ch, freqs, Options{})
	assert.Zero(t, probs.Sum())
}
