package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/born-sae/internal/parallel"
)

// rowParallel controls how row reductions are split across goroutines.
var rowParallel = parallel.DefaultConfig()

// SetParallelConfig replaces the configuration used by row reductions.
func SetParallelConfig(cfg parallel.Config) {
	rowParallel = cfg
}

// Add returns m + other (element-wise). Shapes must match.
func (m *Matrix) Add(other *Matrix) *Matrix {
	if !m.Shape().Equal(other.Shape()) {
		panic(fmt.Sprintf("Matrix.Add: shape mismatch %v vs %v", m.Shape(), other.Shape()))
	}
	out := Zeros(m.Rows(), m.Cols())
	out.dense.Add(m.dense, other.dense)
	return out
}

// AddColumn returns m with column vector col added to every column.
//
// Equivalent to m + repmat(col, 1, m.Cols()). col must be rows x 1.
func (m *Matrix) AddColumn(col *Matrix) *Matrix {
	if col.Cols() != 1 || col.Rows() != m.Rows() {
		panic(fmt.Sprintf("Matrix.AddColumn: expected column [%d 1], got %v", m.Rows(), col.Shape()))
	}
	out := m.Clone()
	for i := 0; i < out.Rows(); i++ {
		floats.AddConst(col.At(i, 0), out.Row(i))
	}
	return out
}

// RepeatCols returns col replicated n times side by side (rows x n).
func RepeatCols(col *Matrix, n int) *Matrix {
	if col.Cols() != 1 {
		panic(fmt.Sprintf("tensor.RepeatCols: expected column vector, got %v", col.Shape()))
	}
	out := Zeros(col.Rows(), n)
	for i := 0; i < col.Rows(); i++ {
		row := out.Row(i)
		for j := range row {
			row[j] = col.At(i, 0)
		}
	}
	return out
}

// SumRows returns the sum of each row as a rows x 1 column vector.
func (m *Matrix) SumRows() *Matrix {
	out := Zeros(m.Rows(), 1)
	sums := out.Data()
	parallel.ForRange(m.Rows(), func(start, end int) {
		for i := start; i < end; i++ {
			sums[i] = floats.Sum(m.Row(i))
		}
	}, rowParallel)
	return out
}

// Scale returns m * factor.
func (m *Matrix) Scale(factor float64) *Matrix {
	out := Zeros(m.Rows(), m.Cols())
	out.dense.Scale(factor, m.dense)
	return out
}
