package serialization

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/born-ml/born-sae/internal/nn"
	"github.com/born-ml/born-sae/internal/optim"
	"github.com/born-ml/born-sae/internal/tensor"
)

// Tensor name prefixes inside a layer checkpoint.
const (
	weightsPrefix   = "bias."
	optimizerPrefix = "optimizer."
)

// Metadata keys written by SaveLayer.
const (
	MetaOutSize      = "out_size"
	MetaSampleSize   = "sample_size"
	MetaCapabilities = "capabilities"
	MetaRunID        = "run_id"
)

// ModelTypeSparseBias is the model_type of SparseBias checkpoints.
const ModelTypeSparseBias = "SparseBias"

// SaveOptions controls SaveLayer.
type SaveOptions struct {
	DType         tensor.DataType   // Storage type (default: Float64)
	Metadata      map[string]string // Extra metadata merged into the header
	SkipOptimizer bool              // Do not store optimizer state
}

// SaveLayer writes layer weights and, when available, optimizer state to path.
func SaveLayer(path string, layer *nn.SparseBias, opts SaveOptions) error {
	if layer.Weights() == nil {
		return fmt.Errorf("cannot save a moved-from layer")
	}

	stateDict := make(map[string]*tensor.Matrix)
	for name, m := range layer.StateDict() {
		stateDict[weightsPrefix+name] = m
	}

	metadata := map[string]string{
		MetaOutSize:      strconv.Itoa(layer.OutSize()),
		MetaSampleSize:   strconv.Itoa(layer.SampleSize()),
		MetaCapabilities: layer.Capabilities().String(),
		MetaRunID:        uuid.NewString(),
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	header := Header{
		ModelType: ModelTypeSparseBias,
		Metadata:  metadata,
	}

	if opt := layer.Optimizer(); opt != nil && !opts.SkipOptimizer {
		header.CheckpointMeta = &CheckpointMeta{
			OptimizerType:   opt.Name(),
			OptimizerConfig: map[string]any{"lr": opt.GetLR()},
		}
		if stateful, ok := opt.(optim.Stateful); ok {
			state := stateful.StateDict()
			for name, m := range state {
				stateDict[optimizerPrefix+name] = m
			}
			header.CheckpointMeta.IsCheckpoint = len(state) > 0
		}
	}

	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteStateDict(stateDict, header, opts.DType); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// LoadLayer restores weights (and optimizer state, if both the file and the
// layer's optimizer carry it) from path into layer.
//
// Optimizer state saved by a different algorithm is skipped with a warning.
func LoadLayer(path string, layer *nn.SparseBias) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	return loadInto(r, layer)
}

// OpenLayer creates a SparseBias sized from the checkpoint metadata and
// loads it. opts are passed to nn.NewSparseBias.
func OpenLayer(path string, opts ...nn.Option) (*nn.SparseBias, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if mt := r.Header().ModelType; mt != ModelTypeSparseBias {
		return nil, fmt.Errorf("unexpected model type %q", mt)
	}

	outSize, err := metaInt(r.Metadata(), MetaOutSize)
	if err != nil {
		return nil, err
	}
	sampleSize, err := metaInt(r.Metadata(), MetaSampleSize)
	if err != nil {
		return nil, err
	}
	if outSize <= 0 || sampleSize <= 0 {
		return nil, fmt.Errorf("invalid layer sizes in metadata: out_size=%d sample_size=%d", outSize, sampleSize)
	}

	info, err := r.TensorInfo(weightsPrefix + "weights")
	if err != nil {
		return nil, err
	}
	if want := (tensor.Shape{outSize, 1}); !tensor.Shape(info.Shape).Equal(want) {
		return nil, fmt.Errorf("metadata out_size=%d does not match weights shape %v", outSize, info.Shape)
	}

	layer := nn.NewSparseBias(outSize, sampleSize, opts...)
	if err := loadInto(r, layer); err != nil {
		layer.Close()
		return nil, err
	}
	return layer, nil
}

func loadInto(r *Reader, layer *nn.SparseBias) error {
	if layer.Weights() == nil {
		return fmt.Errorf("cannot load into a moved-from layer")
	}
	stateDict, err := r.ReadStateDict()
	if err != nil {
		return err
	}

	weights := make(map[string]*tensor.Matrix)
	optState := make(map[string]*tensor.Matrix)
	for name, m := range stateDict {
		switch {
		case strings.HasPrefix(name, weightsPrefix):
			weights[strings.TrimPrefix(name, weightsPrefix)] = m
		case strings.HasPrefix(name, optimizerPrefix):
			optState[strings.TrimPrefix(name, optimizerPrefix)] = m
		}
	}

	previous := layer.Weights().Clone()
	if err := layer.LoadStateDict(weights); err != nil {
		return fmt.Errorf("failed to load layer weights: %w", err)
	}
	if err := loadOptimizerState(r, layer, optState); err != nil {
		_ = layer.LoadStateDict(map[string]*tensor.Matrix{"weights": previous})
		return err
	}
	return nil
}

// loadOptimizerState restores optimizer buffers when the file and the
// layer's optimizer agree on the algorithm.
func loadOptimizerState(r *Reader, layer *nn.SparseBias, optState map[string]*tensor.Matrix) error {
	if !r.HasOptimizerState() {
		return nil
	}
	opt := layer.Optimizer()
	stateful, ok := opt.(optim.Stateful)
	if !ok {
		return nil
	}
	if saved := r.Header().CheckpointMeta; saved == nil || saved.OptimizerType != opt.Name() {
		slog.Warn("skipping optimizer state saved by a different optimizer", "file", r.file.Name(), "optimizer", opt.Name())
		return nil
	}
	if err := stateful.LoadStateDict(optState); err != nil {
		return fmt.Errorf("failed to load optimizer state: %w", err)
	}

	slog.Debug("restored optimizer state", "file", r.file.Name(), "optimizer", opt.Name(), "tensors", len(optState))
	return nil
}

func metaInt(metadata map[string]string, key string) (int, error) {
	v, ok := metadata[key]
	if !ok {
		return 0, fmt.Errorf("missing %s in metadata", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in metadata: %w", key, err)
	}
	return n, nil
}
