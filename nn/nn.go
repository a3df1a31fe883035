// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/born-sae/internal/nn"
	"github.com/born-ml/born-sae/optim"
)

// SparseBias is the bias term of a sparse autoencoder.
type SparseBias = nn.SparseBias

// Option configures a SparseBias during construction.
type Option = nn.Option

// NewSparseBias creates a bias layer with outSize units that averages its
// gradient over sampleSize samples.
//
// Example:
//
//	layer := nn.NewSparseBias(3, 2) // zero init, owned RMSProp
//	defer layer.Close()
func NewSparseBias(outSize, sampleSize int, opts ...Option) *SparseBias {
	return nn.NewSparseBias(outSize, sampleSize, opts...)
}

// WithInitRule sets the rule used to initialize the biases.
func WithInitRule(rule InitRule) Option {
	return nn.WithInitRule(rule)
}

// WithOptimizer makes the layer build and own its optimizer.
func WithOptimizer(factory optim.Factory) Option {
	return nn.WithOptimizer(factory)
}

// WithBorrowedOptimizer attaches an optimizer owned by the caller.
// The layer binds it but never releases it.
func WithBorrowedOptimizer(opt optim.Optimizer) Option {
	return nn.WithBorrowedOptimizer(opt)
}

// Initialization

// InitRule produces the initial weights of a layer.
type InitRule = nn.InitRule

// ZeroInit fills weights with zeros.
type ZeroInit = nn.ZeroInit

// ConstInit fills weights with a fixed value.
type ConstInit = nn.ConstInit

// UniformInit draws weights from U(Low, High).
type UniformInit = nn.UniformInit

// XavierInit draws weights from the Glorot uniform distribution.
type XavierInit = nn.XavierInit

// GaussianInit draws weights from N(Mean, Std²).
type GaussianInit = nn.GaussianInit
