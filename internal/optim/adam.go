package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/born-sae/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	target   Target
	lr       float64
	beta1    float64
	beta2    float64
	eps      float64
	t        int            // Timestep for bias correction
	m        *tensor.Matrix // First moment estimates
	v        *tensor.Matrix // Second moment estimates
	released bool
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer bound to target.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(target Target, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		target: target,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
	}
}

// AdamFactory returns a Factory producing Adam optimizers.
func AdamFactory(config AdamConfig) Factory {
	return func(target Target) Optimizer {
		return NewAdam(target, config)
	}
}

// Name returns "adam".
func (a *Adam) Name() string { return "adam" }

// Bind points the optimizer at target.
func (a *Adam) Bind(target Target) {
	a.target = target
}

// Update performs a single optimization step using Adam algorithm.
func (a *Adam) Update() {
	if a.released {
		return
	}
	weights, grad := gradientFor(a.target)
	if weights == nil {
		return
	}

	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	if a.m == nil {
		a.m = tensor.Zeros(weights.Rows(), weights.Cols())
	}
	if a.v == nil {
		a.v = tensor.Zeros(weights.Rows(), weights.Cols())
	}

	w := weights.Data()
	g := grad.Data()
	mData := a.m.Data()
	vData := a.v.Data()
	for i := range w {
		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g[i]
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g[i]*g[i]

		mHat := mData[i] / biasCorrection1
		vHat := vData[i] / biasCorrection2

		w[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// Release drops the target and both moment buffers.
func (a *Adam) Release() {
	a.target = nil
	a.m = nil
	a.v = nil
	a.released = true
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) { a.lr = lr }

// GetTimestep returns the current timestep.
func (a *Adam) GetTimestep() int { return a.t }

// StateDict returns both moment buffers and the timestep.
//
// State keys: "m", "v", "step" (1x1 matrix holding t).
func (a *Adam) StateDict() map[string]*tensor.Matrix {
	stateDict := make(map[string]*tensor.Matrix)
	if a.m == nil || a.v == nil {
		return stateDict
	}
	stateDict["m"] = a.m
	stateDict["v"] = a.v
	stateDict["step"] = tensor.Full(1, 1, float64(a.t))
	return stateDict
}

// LoadStateDict restores the moment buffers and timestep.
func (a *Adam) LoadStateDict(stateDict map[string]*tensor.Matrix) error {
	if a.target == nil || a.target.Weights() == nil {
		return fmt.Errorf("adam: cannot load state into an unbound optimizer")
	}
	shape := a.target.Weights().Shape()

	m, err := loadBuffer(stateDict, "m", shape)
	if err != nil {
		return fmt.Errorf("adam: %w", err)
	}
	v, err := loadBuffer(stateDict, "v", shape)
	if err != nil {
		return fmt.Errorf("adam: %w", err)
	}
	if (m == nil) != (v == nil) {
		return fmt.Errorf("adam: state must contain both m and v")
	}

	a.m, a.v, a.t = m, v, 0
	if step, ok := stateDict["step"]; ok && m != nil {
		a.t = int(step.At(0, 0))
	}
	return nil
}
