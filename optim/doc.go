// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the update rules for sparse autoencoder layers.
//
// # Overview
//
// This package contains:
//   - RMSProp: default optimizer of SparseBias
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// An optimizer is bound to one Target (the layer) and reads the layer's
// gradient on every Update:
//
//	layer := nn.NewSparseBias(64, 32, nn.WithOptimizer(
//	    optim.AdamFactory(optim.AdamConfig{LR: 0.001}),
//	))
//	defer layer.Close()
//
//	layer.Gradient(delta)
//	layer.Optimizer().Update()
package optim
