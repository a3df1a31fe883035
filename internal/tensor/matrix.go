package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense two-dimensional float64 tensor.
//
// Layout follows the batch convention of the layers: one row per unit and
// one column per sample. Storage is row-major and contiguous, so Data
// returns a live view of the elements.
type Matrix struct {
	dense *mat.Dense
}

// wrap adopts d without copying. d must have Stride == cols.
func wrap(d *mat.Dense) *Matrix {
	return &Matrix{dense: d}
}

// Zeros creates a rows x cols matrix filled with zeros.
func Zeros(rows, cols int) *Matrix {
	if err := (Shape{rows, cols}).Validate(); err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return wrap(mat.NewDense(rows, cols, nil))
}

// Full creates a rows x cols matrix filled with value.
func Full(rows, cols int, value float64) *Matrix {
	m := Zeros(rows, cols)
	data := m.Data()
	for i := range data {
		data[i] = value
	}
	return m
}

// FromSlice creates a matrix from row-major data.
//
// The data is copied. A one-dimensional shape {n} produces an n x 1 column.
func FromSlice(data []float64, shape Shape) (*Matrix, error) {
	rows, cols, err := shape.Dims()
	if err != nil {
		return nil, err
	}
	if err := (Shape{rows, cols}).Validate(); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, rows*cols)
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return wrap(mat.NewDense(rows, cols, buf)), nil
}

// FromRows creates a matrix from a slice of equally sized rows.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	cols := len(rows[0])
	buf := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(r), cols)
		}
		buf = append(buf, r...)
	}
	return wrap(mat.NewDense(len(rows), cols, buf)), nil
}

// ColVec creates an n x 1 column vector holding a copy of values.
func ColVec(values []float64) *Matrix {
	if len(values) == 0 {
		panic("tensor.ColVec: empty vector")
	}
	buf := make([]float64, len(values))
	copy(buf, values)
	return wrap(mat.NewDense(len(values), 1, buf))
}

// FromDense copies any gonum matrix into a new Matrix.
func FromDense(m mat.Matrix) *Matrix {
	return wrap(mat.DenseCopyOf(m))
}

// Rows returns the number of rows (units).
func (m *Matrix) Rows() int {
	r, _ := m.dense.Dims()
	return r
}

// Cols returns the number of columns (samples).
func (m *Matrix) Cols() int {
	_, c := m.dense.Dims()
	return c
}

// Shape returns {rows, cols}.
func (m *Matrix) Shape() Shape {
	r, c := m.dense.Dims()
	return Shape{r, c}
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.dense.At(i, j)
}

// Set sets the element at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.dense.Set(i, j, v)
}

// Data returns the row-major backing slice. Writes are visible in m.
func (m *Matrix) Data() []float64 {
	return m.dense.RawMatrix().Data
}

// Row returns a live view of row i.
func (m *Matrix) Row(i int) []float64 {
	raw := m.dense.RawMatrix()
	return raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	return FromDense(m.dense)
}

// CopyFrom overwrites m with the values of src. Shapes must match.
func (m *Matrix) CopyFrom(src *Matrix) {
	if !m.Shape().Equal(src.Shape()) {
		panic(fmt.Sprintf("Matrix.CopyFrom: shape mismatch %v vs %v", m.Shape(), src.Shape()))
	}
	m.dense.Copy(src.dense)
}

// Equal reports whether both matrices have the same shape and elements.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	return mat.Equal(m.dense, other.dense)
}

// EqualApprox is Equal with an absolute-or-relative tolerance.
func (m *Matrix) EqualApprox(other *Matrix, tol float64) bool {
	if m == nil || other == nil {
		return m == other
	}
	return mat.EqualApprox(m.dense, other.dense, tol)
}

// ToRows returns a copy of the elements as a slice of rows.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.Rows())
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}

// String formats the matrix for debugging.
func (m *Matrix) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", mat.Formatted(m.dense, mat.Squeeze()))
}
