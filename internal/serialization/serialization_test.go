package serialization

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-sae/internal/nn"
	"github.com/born-ml/born-sae/internal/optim"
	"github.com/born-ml/born-sae/internal/tensor"
)

// trainedLayer returns a layer whose weights and optimizer state are non-trivial.
func trainedLayer(t *testing.T, opts ...nn.Option) *nn.SparseBias {
	t.Helper()
	layer := nn.NewSparseBias(4, 2, opts...)

	delta, err := tensor.FromRows([][]float64{{1, 2}, {-1, 0.5}, {0, 0}, {3, -3}})
	require.NoError(t, err)
	for range 3 {
		layer.Gradient(layer.Backward(nil, delta))
		layer.Optimizer().Update()
	}
	return layer
}

func TestEncodeDecode(t *testing.T) {
	values := []float64{0, 1, -2.5, 0.125, 1024}

	for _, dtype := range []tensor.DataType{tensor.Float64, tensor.Float32, tensor.Float16, tensor.BFloat16} {
		t.Run(dtype.String(), func(t *testing.T) {
			data, err := encodeValues(values, dtype)
			require.NoError(t, err)
			assert.Len(t, data, len(values)*dtype.Size())

			decoded, err := decodeValues(data, dtype)
			require.NoError(t, err)
			// All values are exactly representable in both 16-bit formats.
			assert.Equal(t, values, decoded)
		})
	}

	_, err := decodeValues([]byte{1, 2, 3}, tensor.Float32)
	assert.Error(t, err)
}

func TestSaveLoadLayer_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	src := trainedLayer(t)
	defer src.Close()
	require.NoError(t, SaveLayer(path, src, SaveOptions{Metadata: map[string]string{"note": "test"}}))

	dst := nn.NewSparseBias(4, 2)
	defer dst.Close()
	require.NoError(t, LoadLayer(path, dst))

	assert.True(t, src.Weights().Equal(dst.Weights()))

	srcState := src.Optimizer().(optim.Stateful).StateDict()
	dstState := dst.Optimizer().(optim.Stateful).StateDict()
	require.Contains(t, dstState, "mean_sq")
	assert.True(t, srcState["mean_sq"].Equal(dstState["mean_sq"]))
}

func TestSaveLayer_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	layer := trainedLayer(t)
	defer layer.Close()
	require.NoError(t, SaveLayer(path, layer, SaveOptions{DType: tensor.Float32}))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	assert.Equal(t, FormatVersion, h.FormatVersion)
	assert.Equal(t, ModelTypeSparseBias, h.ModelType)
	assert.Equal(t, "4", h.Metadata[MetaOutSize])
	assert.Equal(t, "2", h.Metadata[MetaSampleSize])
	assert.Equal(t, "bias|connection", h.Metadata[MetaCapabilities])
	assert.NotEmpty(t, h.Metadata[MetaRunID])
	require.NotNil(t, h.CheckpointMeta)
	assert.Equal(t, "rmsprop", h.CheckpointMeta.OptimizerType)
	assert.True(t, r.HasOptimizerState())
	assert.Equal(t, []string{"bias.weights", "optimizer.mean_sq"}, r.TensorNames())

	info, err := r.TensorInfo("bias.weights")
	require.NoError(t, err)
	assert.Equal(t, "float32", info.DType)
	assert.Equal(t, []int{4, 1}, info.Shape)

	_, err = r.TensorInfo("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestSaveLayer_ReducedPrecision(t *testing.T) {
	for _, dtype := range []tensor.DataType{tensor.Float32, tensor.Float16, tensor.BFloat16} {
		t.Run(dtype.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bias.born")
			src := nn.NewSparseBias(8, 1, nn.WithInitRule(nn.GaussianInit{Std: 0.5, Seed: 1}))
			defer src.Close()

			require.NoError(t, SaveLayer(path, src, SaveOptions{DType: dtype}))

			dst, err := OpenLayer(path)
			require.NoError(t, err)
			defer dst.Close()

			assert.True(t, src.Weights().EqualApprox(dst.Weights(), 1e-2))
		})
	}
}

func TestOpenLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	src := trainedLayer(t)
	defer src.Close()
	require.NoError(t, SaveLayer(path, src, SaveOptions{}))

	dst, err := OpenLayer(path)
	require.NoError(t, err)
	defer dst.Close()

	assert.Equal(t, 4, dst.OutSize())
	assert.Equal(t, 2, dst.SampleSize())
	assert.True(t, src.Weights().Equal(dst.Weights()))
	assert.Equal(t, nn.Owned, dst.Ownership())
}

func TestLoadLayer_DifferentOptimizerSkipsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	src := trainedLayer(t)
	defer src.Close()
	require.NoError(t, SaveLayer(path, src, SaveOptions{}))

	dst := nn.NewSparseBias(4, 2, nn.WithOptimizer(optim.AdamFactory(optim.AdamConfig{})))
	defer dst.Close()
	require.NoError(t, LoadLayer(path, dst))

	assert.True(t, src.Weights().Equal(dst.Weights()))
	assert.Empty(t, dst.Optimizer().(optim.Stateful).StateDict())
}

func TestSaveLayer_SkipOptimizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	layer := trainedLayer(t)
	defer layer.Close()
	require.NoError(t, SaveLayer(path, layer, SaveOptions{SkipOptimizer: true}))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.HasOptimizerState())
	assert.Nil(t, r.Header().CheckpointMeta)
	assert.Equal(t, []string{"bias.weights"}, r.TensorNames())
}

func TestLoadLayer_ShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	src := nn.NewSparseBias(3, 1)
	defer src.Close()
	require.NoError(t, SaveLayer(path, src, SaveOptions{}))

	dst := nn.NewSparseBias(5, 1)
	defer dst.Close()
	assert.Error(t, LoadLayer(path, dst))
}

func TestSaveLayer_MovedFrom(t *testing.T) {
	layer := nn.NewSparseBias(2, 1)
	moved := layer.Move()
	defer moved.Close()

	assert.Error(t, SaveLayer(filepath.Join(t.TempDir(), "x.born"), layer, SaveOptions{}))
}

func TestReader_ChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")

	layer := nn.NewSparseBias(4, 1, nn.WithInitRule(nn.ConstInit{Value: 1}))
	defer layer.Close()
	require.NoError(t, SaveLayer(path, layer, SaveOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = NewReader(path)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	r, err := NewReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestReader_InvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.born")
	require.NoError(t, os.WriteFile(path, make([]byte, FixedHeaderSize), 0o600))

	_, err := NewReader(path)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestReader_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.born")
	buf := make([]byte, FixedHeaderSize)
	copy(buf, MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], 1)
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	_, err := NewReader(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestReader_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")
	layer := nn.NewSparseBias(2, 1)
	defer layer.Close()
	require.NoError(t, SaveLayer(path, layer, SaveOptions{}))

	r, err := NewReader(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadStateDict()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriter_RejectsBadNames(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "x.born"))
	require.NoError(t, err)
	defer w.Close()

	err = w.WriteStateDict(map[string]*tensor.Matrix{"../w": tensor.Zeros(1, 1)}, Header{}, tensor.Float64)
	assert.Error(t, err)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteStateDict(nil, Header{}, tensor.Float64), ErrClosed)
}

// writeRawFile lays out header and data the way Writer does, without
// deriving tensor metadata from real matrices.
func writeRawFile(t *testing.T, path string, header Header, data []byte) {
	t.Helper()

	header.FormatVersion = FormatVersion
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	checksum := ComputeChecksum(data)
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed, MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:], checksum[:])

	buf := append(fixed, headerJSON...)
	buf = append(buf, make([]byte, alignedDataOffset(int64(len(headerJSON)))-int64(len(buf)))...)
	buf = append(buf, data...)
	require.NoError(t, os.WriteFile(path, buf, 0o600))
}

func TestReader_RejectsOverflowingShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.born")
	writeRawFile(t, path, Header{
		ModelType: ModelTypeSparseBias,
		Tensors: []TensorMeta{
			{Name: "bias.weights", DType: "float64", Shape: []int{1 << 62, 4}, Offset: 0, Size: 0},
		},
	}, nil)

	_, err := NewReader(path)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "invalid_shape", vErr.Type)

	r, err := NewReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationNone})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadTensor("bias.weights")
	assert.Error(t, err)
}

func TestOpenLayer_MetadataDisagreesWithWeights(t *testing.T) {
	tests := map[string]string{
		"huge out_size":  "1125899906842624",
		"small out_size": "2",
	}

	for name, outSize := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bias.born")
			w, err := NewWriter(path)
			require.NoError(t, err)
			require.NoError(t, w.WriteStateDict(
				map[string]*tensor.Matrix{"bias.weights": tensor.Zeros(1, 1)},
				Header{
					ModelType: ModelTypeSparseBias,
					Metadata:  map[string]string{MetaOutSize: outSize, MetaSampleSize: "1"},
				},
				tensor.Float64,
			))
			require.NoError(t, w.Close())

			var layer *nn.SparseBias
			require.NotPanics(t, func() { layer, err = OpenLayer(path) })
			assert.Error(t, err)
			assert.Nil(t, layer)
		})
	}
}

func TestLoadLayer_BadOptimizerStateKeepsWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteStateDict(
		map[string]*tensor.Matrix{
			"bias.weights":      tensor.Full(2, 1, 7),
			"optimizer.mean_sq": tensor.Zeros(3, 1),
		},
		Header{
			ModelType:      ModelTypeSparseBias,
			CheckpointMeta: &CheckpointMeta{IsCheckpoint: true, OptimizerType: "rmsprop"},
		},
		tensor.Float64,
	))
	require.NoError(t, w.Close())

	layer := nn.NewSparseBias(2, 1, nn.WithInitRule(nn.ConstInit{Value: 1}))
	defer layer.Close()

	assert.Error(t, LoadLayer(path, layer))
	assert.Equal(t, []float64{1, 1}, layer.Weights().Data())
	assert.Empty(t, layer.Optimizer().(optim.Stateful).StateDict())
}

func TestLoadLayer_MovedFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bias.born")
	layer := nn.NewSparseBias(2, 1)
	require.NoError(t, SaveLayer(path, layer, SaveOptions{}))

	moved := layer.Move()
	defer moved.Close()
	assert.Error(t, LoadLayer(path, layer))
}
