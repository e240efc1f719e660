// SPDX-License-Identifier: MIT

package cochange

import (
	"fmt"
)

// Options tunes the coupling computation.
type Options struct {
	// ChangesMin drops files with fewer total changes before coupling.
	ChangesMin int
	// FreqMin zeroes co-change frequencies at or below this threshold.
	FreqMin int
	// Model selects the calculation model.
	Model ModelType
	// Parallelism bounds concurrent row computations (0 = GOMAXPROCS).
	Parallelism int
}

// ModelType names a coupling model.
type ModelType int

const (
	// ModelNaive weighs co-changes by the date distance between commits.
	ModelNaive ModelType = iota
	// ModelBayes counts joint changes and derives posterior probabilities.
	ModelBayes
	// ModelMixed combines naive frequencies with bayes probabilities.
	ModelMixed
	// ModelNop skips the computation entirely.
	ModelNop
)

// ParseModelType parses a model name.
func ParseModelType(s string) (ModelType, error) {
	switch s {
	case "naive":
		return ModelNaive, nil
	case "bayes":
		return ModelBayes, nil
	case "mixed":
		return ModelMixed, nil
	case "nop":
		return ModelNop, nil
	default:
		return ModelNaive, fmt.Errorf("unknown model %q", s)
	}
}

func (m ModelType) String() string {
	switch m {
	case ModelBayes:
		return "bayes"
	case ModelMixed:
		return "mixed"
	case ModelNop:
		return "nop"
	default:
		return "naive"
	}
}

// New returns the model implementation for the type.
func (m ModelType) New() Model {
	switch m {
	case ModelBayes:
		return bayesModel{}
	case ModelMixed:
		return mixedModel{}
	case ModelNop:
		return nopModel{}
	default:
		return naiveModel{}
	}
}
