package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/born-sae/internal/tensor"
)

// InitRule produces the initial weight matrix of a layer.
//
// Layers call Initialize exactly once, during construction.
type InitRule interface {
	Initialize(rows, cols int) *tensor.Matrix
}

// ZeroInit fills weights with zeros. It is the default rule for bias layers.
type ZeroInit struct{}

// Initialize returns a rows x cols zero matrix.
func (ZeroInit) Initialize(rows, cols int) *tensor.Matrix {
	return tensor.Zeros(rows, cols)
}

// ConstInit fills weights with a fixed value.
type ConstInit struct {
	Value float64
}

// Initialize returns a rows x cols matrix filled with c.Value.
func (c ConstInit) Initialize(rows, cols int) *tensor.Matrix {
	return tensor.Full(rows, cols, c.Value)
}

// UniformInit draws weights from U(Low, High).
type UniformInit struct {
	Low, High float64
	Seed      int64
}

// Initialize returns a rows x cols matrix of uniform samples.
func (u UniformInit) Initialize(rows, cols int) *tensor.Matrix {
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	rng := rand.New(rand.NewSource(u.Seed))
	m := tensor.Zeros(rows, cols)
	data := m.Data()
	for i := range data {
		data[i] = u.Low + rng.Float64()*(u.High-u.Low)
	}
	return m
}

// XavierInit (Glorot) draws weights from
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))),
// with fan_in = cols and fan_out = rows.
type XavierInit struct {
	Seed int64
}

// Initialize returns a rows x cols matrix with Xavier-uniform values.
func (x XavierInit) Initialize(rows, cols int) *tensor.Matrix {
	bound := math.Sqrt(6.0 / float64(rows+cols))
	return UniformInit{Low: -bound, High: bound, Seed: x.Seed}.Initialize(rows, cols)
}

// GaussianInit draws weights from N(Mean, Std²).
type GaussianInit struct {
	Mean, Std float64
	Seed      int64
}

// Initialize returns a rows x cols matrix of normal samples.
func (g GaussianInit) Initialize(rows, cols int) *tensor.Matrix {
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	rng := rand.New(rand.NewSource(g.Seed))
	m := tensor.Zeros(rows, cols)
	data := m.Data()
	for i := range data {
		data[i] = g.Mean + rng.NormFloat64()*g.Std
	}
	return m
}
