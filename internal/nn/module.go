// Package nn implements the sparse autoencoder layers for Born.
//
// This package provides:
//   - Layer interface: the forward/backward/gradient contract a host network drives
//   - Capabilities: the flags a host graph queries to decide how to wire a layer
//   - SparseBias: the bias term of a sparse autoencoder
//   - Init rules: Zero, Const, Uniform, Xavier, Gaussian
//
// Matrices follow the batch convention of internal/tensor: one row per unit
// and one column per sample.
package nn

import (
	"strings"

	"github.com/born-ml/born-sae/internal/tensor"
)

// Layer is the contract between a layer and the training loop driving it.
//
// Type-specific accessors (weights, buffers, optimizer) live on the
// concrete types; hosts use Capabilities to decide which of them apply.
type Layer interface {
	// Forward evaluates the layer on a batch, one column per sample.
	Forward(input *tensor.Matrix) *tensor.Matrix

	// Backward propagates the upstream error gy back through the layer,
	// given the input the forward pass saw.
	Backward(input, gy *tensor.Matrix) *tensor.Matrix

	// Gradient computes the weight gradient from the layer's error delta.
	Gradient(delta *tensor.Matrix) *tensor.Matrix

	// Capabilities reports how a host graph should treat the layer.
	Capabilities() Capabilities
}

// Capabilities is the set of flags a host network inspects when wiring a
// layer into its graph.
type Capabilities struct {
	Binary     bool // Produces binary outputs.
	Output     bool // Terminates the network.
	Bias       bool // Adds a learned per-unit constant.
	LSTM       bool // Carries recurrent state.
	Connection bool // Owns weights connecting two layers and takes part in Gradient/Update.
}

// Flags returns the names of the flags that are set, in declaration order.
func (c Capabilities) Flags() []string {
	var flags []string
	if c.Binary {
		flags = append(flags, "binary")
	}
	if c.Output {
		flags = append(flags, "output")
	}
	if c.Bias {
		flags = append(flags, "bias")
	}
	if c.LSTM {
		flags = append(flags, "lstm")
	}
	if c.Connection {
		flags = append(flags, "connection")
	}
	return flags
}

// String returns the set flags joined by "|", or "none".
func (c Capabilities) String() string {
	flags := c.Flags()
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, "|")
}

// Ownership records whether a layer is responsible for releasing its optimizer.
type Ownership int

const (
	// Borrowed means someone else releases the optimizer (or there is none).
	Borrowed Ownership = iota
	// Owned means the layer releases the optimizer on Close.
	Owned
)

// String returns "owned" or "borrowed".
func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}
