package nn

import (
	"fmt"

	"github.com/born-ml/born-sae/internal/optim"
	"github.com/born-ml/born-sae/internal/tensor"
)

// SparseBias implements the bias part of a sparse autoencoder.
//
// It holds one bias per output unit and adds it to every sample of the
// batch. The weight gradient is the batch average of the error, so the
// layer needs to know the sample size of the current batch.
//
// Example:
//
//	layer := nn.NewSparseBias(3, 2) // zero init, owned RMSProp
//	defer layer.Close()
//
//	output := layer.Forward(input)        // input: [3, 2]
//	g := layer.Backward(input, upstream)  // identity
//	layer.Gradient(delta)                 // sum(delta, cols) / 2
//	layer.Optimizer().Update()
type SparseBias struct {
	outSize    int
	sampleSize int

	weights         *tensor.Matrix // [outSize, 1]
	delta           *tensor.Matrix
	gradient        *tensor.Matrix // [outSize, 1]
	inputParameter  *tensor.Matrix
	outputParameter *tensor.Matrix

	optimizer optim.Optimizer
	ownership Ownership
}

// Compile-time interface checks.
var (
	_ Layer        = (*SparseBias)(nil)
	_ optim.Target = (*SparseBias)(nil)
)

// Option configures a SparseBias during construction.
type Option func(*biasOptions)

type biasOptions struct {
	initRule InitRule
	factory  optim.Factory
	borrowed optim.Optimizer
}

// WithInitRule sets the rule used to initialize the bias vector.
func WithInitRule(rule InitRule) Option {
	return func(o *biasOptions) {
		o.initRule = rule
	}
}

// WithOptimizer makes the layer build its optimizer with factory.
// The layer owns the result and releases it on Close.
func WithOptimizer(factory optim.Factory) Option {
	return func(o *biasOptions) {
		o.factory = factory
		o.borrowed = nil
	}
}

// WithBorrowedOptimizer attaches an optimizer the caller keeps ownership of.
// The optimizer is bound to the new layer; Close leaves it alive.
func WithBorrowedOptimizer(opt optim.Optimizer) Option {
	return func(o *biasOptions) {
		o.borrowed = opt
		o.factory = nil
	}
}

// NewSparseBias creates a new SparseBias layer.
//
// Defaults: zero-initialized biases and an owned RMSProp optimizer.
//
// Parameters:
//   - outSize: Number of output units
//   - sampleSize: Number of samples per batch, used to average the gradient
//   - opts: Init rule and optimizer overrides
//
// Panics if outSize or sampleSize is not positive.
func NewSparseBias(outSize, sampleSize int, opts ...Option) *SparseBias {
	if outSize <= 0 {
		panic(fmt.Sprintf("NewSparseBias: outSize must be positive, got %d", outSize))
	}
	if sampleSize <= 0 {
		panic(fmt.Sprintf("NewSparseBias: sampleSize must be positive, got %d", sampleSize))
	}

	o := biasOptions{
		initRule: ZeroInit{},
		factory:  optim.RMSPropFactory(optim.RMSPropConfig{}),
	}
	for _, opt := range opts {
		opt(&o)
	}

	l := &SparseBias{
		outSize:    outSize,
		sampleSize: sampleSize,
	}

	l.weights = o.initRule.Initialize(outSize, 1)
	if !l.weights.Shape().Equal(tensor.Shape{outSize, 1}) {
		panic(fmt.Sprintf("NewSparseBias: init rule returned shape %v, expected [%d 1]",
			l.weights.Shape(), outSize))
	}

	switch {
	case o.borrowed != nil:
		o.borrowed.Bind(l)
		l.optimizer = o.borrowed
		l.ownership = Borrowed
	case o.factory != nil:
		l.optimizer = o.factory(l)
		l.ownership = Owned
	}

	return l
}

// Forward adds the bias to every column of input.
//
// Input shape: [outSize, batch]
// Output shape: [outSize, batch]
func (l *SparseBias) Forward(input *tensor.Matrix) *tensor.Matrix {
	l.mustHaveWeights("Forward")
	if input == nil || input.Rows() != l.outSize {
		panic(fmt.Sprintf("SparseBias.Forward: expected input with %d rows, got %v", l.outSize, shapeOf(input)))
	}

	output := input.AddColumn(l.weights)

	l.inputParameter = input
	l.outputParameter = output
	return output
}

// Backward returns gy unchanged: bias addition has a unit local derivative.
// The input is unused.
func (l *SparseBias) Backward(_, gy *tensor.Matrix) *tensor.Matrix {
	l.mustHaveWeights("Backward")
	if gy == nil {
		panic("SparseBias.Backward: nil error")
	}
	g := gy.Clone()
	l.delta = g
	return g
}

// Gradient averages delta over the batch: sum(delta, cols) / sampleSize.
//
// The result has shape [outSize, 1] and becomes the layer gradient that the
// optimizer reads on its next Update.
func (l *SparseBias) Gradient(delta *tensor.Matrix) *tensor.Matrix {
	l.mustHaveWeights("Gradient")
	if delta == nil || delta.Rows() != l.outSize {
		panic(fmt.Sprintf("SparseBias.Gradient: expected delta with %d rows, got %v", l.outSize, shapeOf(delta)))
	}

	l.gradient = delta.SumRows().Scale(1.0 / float64(l.sampleSize))
	return l.gradient
}

// Capabilities reports the layer as a bias connection.
func (l *SparseBias) Capabilities() Capabilities {
	return Capabilities{Bias: true, Connection: true}
}

// Move transfers the layer state into a new instance and returns it.
//
// Buffers and the optimizer (with its ownership) move to the returned layer
// and the optimizer is rebound to it. The receiver is left empty and
// Borrowed, so closing it releases nothing.
func (l *SparseBias) Move() *SparseBias {
	dst := &SparseBias{
		outSize:         l.outSize,
		sampleSize:      l.sampleSize,
		weights:         l.weights,
		delta:           l.delta,
		gradient:        l.gradient,
		inputParameter:  l.inputParameter,
		outputParameter: l.outputParameter,
		optimizer:       l.optimizer,
		ownership:       l.ownership,
	}
	if dst.optimizer != nil {
		dst.optimizer.Bind(dst)
	}

	*l = SparseBias{
		outSize:    l.outSize,
		sampleSize: l.sampleSize,
		ownership:  Borrowed,
	}
	return dst
}

// Close releases the optimizer if the layer owns it. A borrowed optimizer
// is left untouched. Calling Close more than once is safe.
func (l *SparseBias) Close() {
	if l.ownership == Owned && l.optimizer != nil {
		l.optimizer.Release()
	}
	l.optimizer = nil
	l.ownership = Borrowed
}

// Weights returns the bias vector [outSize, 1]. The optimizer updates it in place.
func (l *SparseBias) Weights() *tensor.Matrix {
	return l.weights
}

// Grad returns the gradient from the last Gradient call, or nil.
func (l *SparseBias) Grad() *tensor.Matrix {
	return l.gradient
}

// Delta returns the error from the last Backward call, or nil.
func (l *SparseBias) Delta() *tensor.Matrix {
	return l.delta
}

// InputParameter returns the input of the last Forward call, or nil.
func (l *SparseBias) InputParameter() *tensor.Matrix {
	return l.inputParameter
}

// OutputParameter returns the output of the last Forward call, or nil.
func (l *SparseBias) OutputParameter() *tensor.Matrix {
	return l.outputParameter
}

// Optimizer returns the optimizer, or nil after Move or Close.
func (l *SparseBias) Optimizer() optim.Optimizer {
	return l.optimizer
}

// Ownership reports whether Close releases the optimizer.
func (l *SparseBias) Ownership() Ownership {
	return l.ownership
}

// OutSize returns the number of output units.
func (l *SparseBias) OutSize() int {
	return l.outSize
}

// SampleSize returns the batch size used to average the gradient.
func (l *SparseBias) SampleSize() int {
	return l.sampleSize
}

// SetSampleSize changes the batch size used by subsequent Gradient calls.
func (l *SparseBias) SetSampleSize(n int) {
	if n <= 0 {
		panic(fmt.Sprintf("SparseBias.SetSampleSize: must be positive, got %d", n))
	}
	l.sampleSize = n
}

// StateDict returns a map of parameter names to matrices.
func (l *SparseBias) StateDict() map[string]*tensor.Matrix {
	l.mustHaveWeights("StateDict")
	return map[string]*tensor.Matrix{"weights": l.weights}
}

// LoadStateDict loads the bias vector from a state dictionary.
func (l *SparseBias) LoadStateDict(stateDict map[string]*tensor.Matrix) error {
	if l.weights == nil {
		return fmt.Errorf("cannot load into a moved-from layer")
	}
	weights, ok := stateDict["weights"]
	if !ok {
		return fmt.Errorf("missing weights in state dict")
	}

	expected := tensor.Shape{l.outSize, 1}
	if !weights.Shape().Equal(expected) {
		return fmt.Errorf("weights shape mismatch: expected %v, got %v", expected, weights.Shape())
	}

	l.weights.CopyFrom(weights)
	return nil
}

func (l *SparseBias) mustHaveWeights(op string) {
	if l.weights == nil {
		panic(fmt.Sprintf("SparseBias.%s: layer has been moved", op))
	}
}

func shapeOf(m *tensor.Matrix) any {
	if m == nil {
		return "nil"
	}
	return m.Shape()
}
