package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/born-sae/internal/tensor"
)

// RMSProp implements the RMSProp optimizer. It is the default optimizer of
// the sparse autoencoder layers.
//
// Update rule:
//
//	ms = alpha * ms + (1 - alpha) * gradient²
//	param = param - lr * gradient / (sqrt(ms) + eps)
//
// The mean-square buffer starts at zero and is allocated on the first step.
type RMSProp struct {
	target   Target
	lr       float64
	alpha    float64
	eps      float64
	meanSq   *tensor.Matrix
	released bool
}

// RMSPropConfig holds configuration for RMSProp optimizer.
type RMSPropConfig struct {
	LR    float64 // Learning rate (default: 0.01)
	Alpha float64 // Smoothing constant (default: 0.99)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

// NewRMSProp creates a new RMSProp optimizer bound to target.
//
// Zero fields of config are replaced by their defaults.
func NewRMSProp(target Target, config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Alpha == 0 {
		config.Alpha = 0.99
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &RMSProp{
		target: target,
		lr:     config.LR,
		alpha:  config.Alpha,
		eps:    config.Eps,
	}
}

// RMSPropFactory returns a Factory producing RMSProp optimizers.
func RMSPropFactory(config RMSPropConfig) Factory {
	return func(target Target) Optimizer {
		return NewRMSProp(target, config)
	}
}

// Name returns "rmsprop".
func (r *RMSProp) Name() string { return "rmsprop" }

// Bind points the optimizer at target.
func (r *RMSProp) Bind(target Target) {
	r.target = target
}

// Update performs a single optimization step.
func (r *RMSProp) Update() {
	if r.released {
		return
	}
	weights, grad := gradientFor(r.target)
	if weights == nil {
		return
	}

	if r.meanSq == nil {
		r.meanSq = tensor.Zeros(weights.Rows(), weights.Cols())
	}

	w := weights.Data()
	g := grad.Data()
	ms := r.meanSq.Data()
	for i := range w {
		ms[i] = r.alpha*ms[i] + (1-r.alpha)*g[i]*g[i]
		w[i] -= r.lr * g[i] / (math.Sqrt(ms[i]) + r.eps)
	}
}

// Release drops the target and the mean-square buffer.
func (r *RMSProp) Release() {
	r.target = nil
	r.meanSq = nil
	r.released = true
}

// Released reports whether Release has been called.
func (r *RMSProp) Released() bool { return r.released }

// GetLR returns the current learning rate.
func (r *RMSProp) GetLR() float64 { return r.lr }

// SetLR updates the learning rate.
func (r *RMSProp) SetLR(lr float64) { r.lr = lr }

// Config returns the hyperparameters in use.
func (r *RMSProp) Config() RMSPropConfig {
	return RMSPropConfig{LR: r.lr, Alpha: r.alpha, Eps: r.eps}
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "mean_sq". Empty before the first step.
func (r *RMSProp) StateDict() map[string]*tensor.Matrix {
	stateDict := make(map[string]*tensor.Matrix)
	if r.meanSq != nil {
		stateDict["mean_sq"] = r.meanSq
	}
	return stateDict
}

// LoadStateDict restores the mean-square buffer.
//
// The optimizer must be bound so the buffer shape can be validated.
func (r *RMSProp) LoadStateDict(stateDict map[string]*tensor.Matrix) error {
	if r.target == nil || r.target.Weights() == nil {
		return fmt.Errorf("rmsprop: cannot load state into an unbound optimizer")
	}
	meanSq, err := loadBuffer(stateDict, "mean_sq", r.target.Weights().Shape())
	if err != nil {
		return fmt.Errorf("rmsprop: %w", err)
	}
	r.meanSq = meanSq
	return nil
}
