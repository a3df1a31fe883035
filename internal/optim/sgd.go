package optim

import (
	"fmt"

	"github.com/born-ml/born-sae/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	target   Target
	lr       float64
	momentum float64
	velocity *tensor.Matrix
	released bool
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer bound to target.
func NewSGD(target Target, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		target:   target,
		lr:       config.LR,
		momentum: config.Momentum,
	}
}

// SGDFactory returns a Factory producing SGD optimizers.
func SGDFactory(config SGDConfig) Factory {
	return func(target Target) Optimizer {
		return NewSGD(target, config)
	}
}

// Name returns "sgd".
func (s *SGD) Name() string { return "sgd" }

// Bind points the optimizer at target.
func (s *SGD) Bind(target Target) {
	s.target = target
}

// Update performs a single optimization step.
func (s *SGD) Update() {
	if s.released {
		return
	}
	weights, grad := gradientFor(s.target)
	if weights == nil {
		return
	}

	w := weights.Data()
	g := grad.Data()

	if s.momentum == 0 {
		for i := range w {
			w[i] -= s.lr * g[i]
		}
		return
	}

	if s.velocity == nil {
		s.velocity = tensor.Zeros(weights.Rows(), weights.Cols())
	}
	v := s.velocity.Data()
	for i := range w {
		v[i] = s.momentum*v[i] + g[i]
		w[i] -= s.lr * v[i]
	}
}

// Release drops the target and the velocity buffer.
func (s *SGD) Release() {
	s.target = nil
	s.velocity = nil
	s.released = true
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) { s.lr = lr }

// StateDict returns the velocity buffer when momentum is enabled.
//
// State keys: "velocity".
func (s *SGD) StateDict() map[string]*tensor.Matrix {
	stateDict := make(map[string]*tensor.Matrix)
	if s.momentum != 0 && s.velocity != nil {
		stateDict["velocity"] = s.velocity
	}
	return stateDict
}

// LoadStateDict restores the velocity buffer. Without momentum the state is ignored.
func (s *SGD) LoadStateDict(stateDict map[string]*tensor.Matrix) error {
	if s.momentum == 0 {
		return nil
	}
	if s.target == nil || s.target.Weights() == nil {
		return fmt.Errorf("sgd: cannot load state into an unbound optimizer")
	}
	velocity, err := loadBuffer(stateDict, "velocity", s.target.Weights().Shape())
	if err != nil {
		return fmt.Errorf("sgd: %w", err)
	}
	s.velocity = velocity
	return nil
}
