package tensor

import (
	"fmt"
	"math"
)

// Shape represents the dimensions of a tensor.
//
// Matrices in this package are always two-dimensional: {rows, cols}, where
// rows are units and cols are samples.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid: all dimensions > 0 and an element
// count that fits in an int.
func (s Shape) Validate() error {
	n := 1
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
		if n > math.MaxInt/dim {
			return fmt.Errorf("shape %v overflows the element count", s)
		}
		n *= dim
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Dims returns rows and cols of a two-dimensional shape.
//
// A one-dimensional shape {n} is treated as a column vector {n, 1}.
func (s Shape) Dims() (rows, cols int, err error) {
	switch len(s) {
	case 1:
		return s[0], 1, nil
	case 2:
		return s[0], s[1], nil
	default:
		return 0, 0, fmt.Errorf("expected 1D or 2D shape, got %v", s)
	}
}
