// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the sparse autoencoder bias layer and its building blocks.
//
// # Overview
//
// This package contains:
//   - SparseBias: per-unit bias of a sparse autoencoder
//   - Layer interface and Capabilities for host networks
//   - Init rules: ZeroInit, ConstInit, UniformInit, XavierInit, GaussianInit
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/born-sae/nn"
//	    "github.com/born-ml/born-sae/optim"
//	)
//
//	func main() {
//	    layer := nn.NewSparseBias(64, 32,
//	        nn.WithOptimizer(optim.RMSPropFactory(optim.RMSPropConfig{LR: 0.01})),
//	    )
//	    defer layer.Close()
//
//	    output := layer.Forward(input)
//	    delta := layer.Backward(input, upstream)
//	    layer.Gradient(delta)
//	    layer.Optimizer().Update()
//	}
//
// # Ownership
//
// A layer built with WithOptimizer owns its optimizer and releases it in
// Close. WithBorrowedOptimizer attaches an optimizer the caller keeps. Move
// hands the layer state, optimizer included, to a new instance and leaves
// the old one empty.
package nn
