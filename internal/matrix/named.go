// SPDX-License-Identifier: MIT

// Package matrix provides a dense float64 matrix addressable by row and
// column names.
package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Named is a dense matrix whose rows and columns carry names. The zero-size
// matrix (no rows or no columns) is valid; all operations are safe on it.
type Named[R comparable, C comparable] struct {
	data     *mat.Dense // nil when the matrix has a zero dimension
	rowNames []R
	colNames []C
	rowIndex map[R]int
	colIndex map[C]int

	// RowLabel and ColLabel describe the dimensions (e.g. "impacted",
	// "changed"). Informational only.
	RowLabel string
	ColLabel string
}

// New creates a zero-filled named matrix with the given row and column names.
func New[R comparable, C comparable](rowNames []R, colNames []C, rowLabel, colLabel string) *Named[R, C] {
	n, m := len(rowNames), len(colNames)
	rowIndex := make(map[R]int, n)
	for i, r := range rowNames {
		rowIndex[r] = i
	}
	colIndex := make(map[C]int, m)
	for j, c := range colNames {
		colIndex[c] = j
	}
	var data *mat.Dense
	if n > 0 && m > 0 {
		data = mat.NewDense(n, m, nil)
	}
	return &Named[R, C]{
		data:     data,
		rowNames: rowNames,
		colNames: colNames,
		rowIndex: rowIndex,
		colIndex: colIndex,
		RowLabel: rowLabel,
		ColLabel: colLabel,
	}
}

// Rows returns the number of rows.
func (m *Named[R, C]) Rows() int { return len(m.rowNames) }

// Cols returns the number of columns.
func (m *Named[R, C]) Cols() int { return len(m.colNames) }

// IsEmpty reports whether the matrix has a zero dimension.
func (m *Named[R, C]) IsEmpty() bool { return m.data == nil }

// RowNames returns the row names in index order. The slice is shared, not copied.
func (m *Named[R, C]) RowNames() []R { return m.rowNames }

// ColNames returns the column names in index order. The slice is shared, not copied.
func (m *Named[R, C]) ColNames() []C { return m.colNames }

// IndexOfRow returns the index of the named row.
func (m *Named[R, C]) IndexOfRow(name R) (int, bool) {
	i, ok := m.rowIndex[name]
	return i, ok
}

// IndexOfCol returns the index of the named column.
func (m *Named[R, C]) IndexOfCol(name C) (int, bool) {
	j, ok := m.colIndex[name]
	return j, ok
}

// At returns the element at (i, j). Out-of-range access on an empty matrix
// returns 0.
func (m *Named[R, C]) At(i, j int) float64 {
	if m.data == nil {
		return 0
	}
	return m.data.At(i, j)
}

// Set stores v at (i, j). Writes to an empty matrix are dropped.
func (m *Named[R, C]) Set(i, j int, v float64) {
	if m.data == nil {
		return
	}
	m.data.Set(i, j, v)
}

// Add adds v to the element at (i, j).
func (m *Named[R, C]) Add(i, j int, v float64) {
	if m.data == nil {
		return
	}
	m.data.Set(i, j, m.data.At(i, j)+v)
}

// Row returns a copy of row i.
func (m *Named[R, C]) Row(i int) []float64 {
	if m.data == nil {
		return nil
	}
	return mat.Row(nil, i, m.data)
}

// RowSum returns the sum of row i.
func (m *Named[R, C]) RowSum(i int) float64 {
	if m.data == nil {
		return 0
	}
	var sum float64
	for j := 0; j < m.Cols(); j++ {
		sum += m.data.At(i, j)
	}
	return sum
}

// ColSum returns the sum of column j.
func (m *Named[R, C]) ColSum(j int) float64 {
	if m.data == nil {
		return 0
	}
	var sum float64
	for i := 0; i < m.Rows(); i++ {
		sum += m.data.At(i, j)
	}
	return sum
}

// Sum returns the sum of all elements.
func (m *Named[R, C]) Sum() float64 {
	if m.data == nil {
		return 0
	}
	return mat.Sum(m.data)
}

// Apply replaces every element with fn(v).
func (m *Named[R, C]) Apply(fn func(v float64) float64) {
	if m.data == nil {
		return
	}
	m.data.Apply(func(_, _ int, v float64) float64 { return fn(v) }, m.data)
}

// SliceCols maps column names to their indices, skipping unknown names.
func (m *Named[R, C]) SliceCols(names []C) []int {
	out := make([]int, 0, len(names))
	for _, c := range names {
		if j, ok := m.colIndex[c]; ok {
			out = append(out, j)
		}
	}
	return out
}

// Dense exposes the backing matrix, or nil for a zero-size matrix.
func (m *Named[R, C]) Dense() *mat.Dense { return m.data }
