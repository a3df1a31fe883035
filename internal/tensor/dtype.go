// Package tensor provides the batch matrix type used by the sparse
// autoencoder layers.
//
// Matrices hold float64 values in memory. DataType only describes how values
// are stored on disk, so checkpoints can trade precision for size.
package tensor

// DataType represents the storage type of tensor elements.
type DataType int

// Supported storage types.
const (
	Float64 DataType = iota
	Float32
	Float16
	BFloat16
)

// Size returns the size in bytes of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float64:
		return 8
	case Float32:
		return 4
	case Float16, BFloat16:
		return 2
	default:
		return 0
	}
}

// String returns a human-readable name.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	default:
		return "unknown"
	}
}

// ParseDataType converts a name produced by String back to a DataType.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "float64", "":
		return Float64, true
	case "float32":
		return Float32, true
	case "float16":
		return Float16, true
	case "bfloat16":
		return BFloat16, true
	default:
		return 0, false
	}
}
