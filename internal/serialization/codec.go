package serialization

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/born-ml/born-sae/internal/tensor"
)

// encodeValues converts values to little-endian bytes of the given storage type.
func encodeValues(values []float64, dtype tensor.DataType) ([]byte, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported dtype: %v", dtype)
	}
	if dtype == tensor.BFloat16 {
		f32s := make([]float32, len(values))
		for i, v := range values {
			f32s[i] = float32(v)
		}
		return bfloat16.EncodeFloat32(f32s), nil
	}

	buf := make([]byte, len(values)*size)
	for i, v := range values {
		off := i * size
		switch dtype {
		case tensor.Float64:
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
		case tensor.Float32:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
		case tensor.Float16:
			binary.LittleEndian.PutUint16(buf[off:], float16.Fromfloat32(float32(v)).Bits())
		}
	}
	return buf, nil
}

// decodeValues is the inverse of encodeValues.
func decodeValues(data []byte, dtype tensor.DataType) ([]float64, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported dtype: %v", dtype)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of %s size %d", len(data), dtype, size)
	}
	if dtype == tensor.BFloat16 {
		f32s := bfloat16.DecodeFloat32(data)
		values := make([]float64, len(f32s))
		for i, f := range f32s {
			values[i] = float64(f)
		}
		return values, nil
	}

	values := make([]float64, len(data)/size)
	for i := range values {
		off := i * size
		switch dtype {
		case tensor.Float64:
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		case tensor.Float32:
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		case tensor.Float16:
			values[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(data[off:])).Float32())
		}
	}
	return values, nil
}
