// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public matrix type used by the sparse
// autoencoder layers.
//
// A Matrix holds one row per unit and one column per sample:
//
//	input, _ := tensor.FromRows([][]float64{
//	    {0.1, 0.2}, // unit 0, samples 0 and 1
//	    {0.3, 0.4}, // unit 1
//	})
//	sums := input.SumRows() // [2 1]
package tensor
