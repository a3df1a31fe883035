// Package optim implements the update rules that adjust layer weights.
//
// An optimizer is bound to a single Target, normally the layer that created
// it. The binding is a non-owning back-reference: the layer owns the
// optimizer (or borrows it) and must outlive every Update call.
//
// Example usage:
//
//	layer := nn.NewSparseBias(64, 32, nn.WithOptimizer(optim.RMSPropFactory(optim.RMSPropConfig{
//	    LR: 0.01,
//	})))
//	defer layer.Close()
//
//	for batch := range batches {
//	    out := layer.Forward(batch)
//	    delta := layer.Backward(batch, upstream(out))
//	    layer.Gradient(delta)
//	    layer.Optimizer().Update()
//	}
package optim

import (
	"fmt"

	"github.com/born-ml/born-sae/internal/tensor"
)

// Target is what an optimizer updates.
//
// Weights returns the live weight matrix, which Update mutates in place.
// Grad returns the most recent gradient, or nil before the first one.
type Target interface {
	Weights() *tensor.Matrix
	Grad() *tensor.Matrix
}

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Name identifies the algorithm ("rmsprop", "sgd", "adam").
	Name() string

	// Bind points the optimizer at target. Moving a layer rebinds its
	// optimizer to the new instance.
	Bind(target Target)

	// Update applies one step using the target's current gradient.
	//
	// It is a no-op when no target is bound, the target has no gradient
	// yet, or the optimizer has been released.
	Update()

	// Release drops the target and all internal state. Calling it more
	// than once has no further effect.
	Release()

	// GetLR returns the current learning rate.
	GetLR() float64
}

// Stateful is implemented by optimizers whose internal buffers can be
// checkpointed alongside the layer weights.
type Stateful interface {
	StateDict() map[string]*tensor.Matrix
	LoadStateDict(stateDict map[string]*tensor.Matrix) error
}

// Factory creates an optimizer bound to target.
//
// Layers call the factory during construction and own the result.
type Factory func(target Target) Optimizer

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// gradientFor returns the weights and gradient of target ready for an update.
//
// Returns nil, nil if there is nothing to update yet.
func gradientFor(target Target) (weights, grad *tensor.Matrix) {
	if target == nil {
		return nil, nil
	}
	weights, grad = target.Weights(), target.Grad()
	if weights == nil || grad == nil {
		return nil, nil
	}
	if !weights.Shape().Equal(grad.Shape()) {
		panic(fmt.Sprintf("optim: gradient shape %v does not match weights %v",
			grad.Shape(), weights.Shape()))
	}
	return weights, grad
}

// loadBuffer validates and copies a state buffer for the given weights shape.
func loadBuffer(stateDict map[string]*tensor.Matrix, key string, shape tensor.Shape) (*tensor.Matrix, error) {
	buf, ok := stateDict[key]
	if !ok {
		return nil, nil // Initialized on first step
	}
	if !buf.Shape().Equal(shape) {
		return nil, fmt.Errorf("%s shape mismatch: expected %v, got %v", key, shape, buf.Shape())
	}
	return buf.Clone(), nil
}
