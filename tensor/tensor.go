// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/born-sae/internal/tensor"
)

// Matrix is a dense float64 matrix backed by gonum.
type Matrix = tensor.Matrix

// Shape represents the dimensions of a matrix.
type Shape = tensor.Shape

// DataType is the storage type used when a matrix is written to disk.
type DataType = tensor.DataType

// Storage types.
const (
	Float64  DataType = tensor.Float64
	Float32  DataType = tensor.Float32
	Float16  DataType = tensor.Float16
	BFloat16 DataType = tensor.BFloat16
)

// Zeros creates a rows x cols matrix filled with zeros.
func Zeros(rows, cols int) *Matrix {
	return tensor.Zeros(rows, cols)
}

// Full creates a rows x cols matrix filled with value.
func Full(rows, cols int, value float64) *Matrix {
	return tensor.Full(rows, cols, value)
}

// FromSlice creates a matrix from row-major data.
func FromSlice(data []float64, shape Shape) (*Matrix, error) {
	return tensor.FromSlice(data, shape)
}

// FromRows creates a matrix from equally sized rows.
func FromRows(rows [][]float64) (*Matrix, error) {
	return tensor.FromRows(rows)
}

// ColVec creates a column vector.
func ColVec(values []float64) *Matrix {
	return tensor.ColVec(values)
}
