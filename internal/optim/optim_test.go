package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-sae/internal/optim"
	"github.com/born-ml/born-sae/internal/tensor"
)

// target is a minimal optim.Target with settable weights and gradient.
type target struct {
	weights *tensor.Matrix
	grad    *tensor.Matrix
}

func (t *target) Weights() *tensor.Matrix { return t.weights }
func (t *target) Grad() *tensor.Matrix    { return t.grad }

func newTarget(weights ...float64) *target {
	return &target{weights: tensor.ColVec(weights)}
}

func (t *target) setGrad(grad ...float64) {
	t.grad = tensor.ColVec(grad)
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	tgt := newTarget(2.0)
	optimizer := optim.NewSGD(tgt, optim.SGDConfig{LR: 0.1})

	tgt.setGrad(1.0)
	optimizer.Update()

	// Expected: x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	assert.InDelta(t, 1.9, tgt.weights.At(0, 0), 1e-12)
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	tgt := newTarget(1.0)
	optimizer := optim.NewSGD(tgt, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	tgt.setGrad(1.0)
	optimizer.Update()
	// v_1 = 1.0, x_1 = 1.0 - 0.1 * 1.0 = 0.9
	assert.InDelta(t, 0.9, tgt.weights.At(0, 0), 1e-12)

	optimizer.Update()
	// v_2 = 0.9 * 1.0 + 1.0 = 1.9, x_2 = 0.9 - 0.1 * 1.9 = 0.71
	assert.InDelta(t, 0.71, tgt.weights.At(0, 0), 1e-12)
}

func TestSGD_Defaults(t *testing.T) {
	optimizer := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, optimizer.GetLR())

	optimizer.SetLR(0.5)
	assert.Equal(t, 0.5, optimizer.GetLR())
}

func TestRMSProp_Defaults(t *testing.T) {
	optimizer := optim.NewRMSProp(nil, optim.RMSPropConfig{})

	assert.Equal(t, optim.RMSPropConfig{LR: 0.01, Alpha: 0.99, Eps: 1e-8}, optimizer.Config())
	assert.Equal(t, "rmsprop", optimizer.Name())
}

func TestRMSProp_Update(t *testing.T) {
	tgt := newTarget(1.0, -1.0)
	optimizer := optim.NewRMSProp(tgt, optim.RMSPropConfig{LR: 0.1, Alpha: 0.9, Eps: 1e-8})

	tgt.setGrad(2.0, 0.0)
	optimizer.Update()

	// ms = 0.1 * 4 = 0.4; w = 1 - 0.1 * 2 / (sqrt(0.4) + eps)
	expected := 1.0 - 0.1*2.0/(math.Sqrt(0.4)+1e-8)
	assert.InDelta(t, expected, tgt.weights.At(0, 0), 1e-12)
	assert.Equal(t, -1.0, tgt.weights.At(1, 0), "zero gradient leaves weight unchanged")

	state := optimizer.StateDict()
	require.Contains(t, state, "mean_sq")
	assert.InDelta(t, 0.4, state["mean_sq"].At(0, 0), 1e-12)
}

func TestAdam_FirstStep(t *testing.T) {
	tgt := newTarget(1.0)
	optimizer := optim.NewAdam(tgt, optim.AdamConfig{LR: 0.1})

	tgt.setGrad(0.5)
	optimizer.Update()

	// With bias correction, the first Adam step moves by ~lr * sign(grad).
	assert.InDelta(t, 0.9, tgt.weights.At(0, 0), 1e-6)
	assert.Equal(t, 1, optimizer.GetTimestep())
}

func TestUpdate_NoGradientIsNoop(t *testing.T) {
	factories := map[string]optim.Factory{
		"rmsprop": optim.RMSPropFactory(optim.RMSPropConfig{}),
		"sgd":     optim.SGDFactory(optim.SGDConfig{Momentum: 0.5}),
		"adam":    optim.AdamFactory(optim.AdamConfig{}),
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			tgt := newTarget(3.0)
			optimizer := factory(tgt)
			assert.Equal(t, name, optimizer.Name())

			optimizer.Update()
			assert.Equal(t, 3.0, tgt.weights.At(0, 0))
		})
	}
}

func TestRelease(t *testing.T) {
	tgt := newTarget(3.0)
	tgt.setGrad(1.0)
	optimizer := optim.NewRMSProp(tgt, optim.RMSPropConfig{})

	optimizer.Update()
	before := tgt.weights.At(0, 0)

	optimizer.Release()
	optimizer.Release()
	assert.True(t, optimizer.Released())
	assert.Empty(t, optimizer.StateDict())

	optimizer.Update()
	assert.Equal(t, before, tgt.weights.At(0, 0), "released optimizer must not update")
}

func TestBind(t *testing.T) {
	first := newTarget(1.0)
	second := newTarget(1.0)
	second.setGrad(1.0)
	first.setGrad(1.0)

	optimizer := optim.NewSGD(first, optim.SGDConfig{LR: 0.5})
	optimizer.Bind(second)
	optimizer.Update()

	assert.Equal(t, 1.0, first.weights.At(0, 0))
	assert.Equal(t, 0.5, second.weights.At(0, 0))
}

func TestUpdate_ShapeMismatchPanics(t *testing.T) {
	tgt := newTarget(1.0, 2.0)
	tgt.setGrad(1.0)
	optimizer := optim.NewSGD(tgt, optim.SGDConfig{})

	assert.Panics(t, optimizer.Update)
}

func TestStateDict_RoundTrip(t *testing.T) {
	t.Run("adam", func(t *testing.T) {
		tgt := newTarget(1.0, 2.0)
		tgt.setGrad(0.1, -0.2)
		src := optim.NewAdam(tgt, optim.AdamConfig{})
		src.Update()
		src.Update()

		dst := optim.NewAdam(newTarget(0, 0), optim.AdamConfig{})
		require.NoError(t, dst.LoadStateDict(src.StateDict()))
		assert.Equal(t, 2, dst.GetTimestep())
		assert.True(t, src.StateDict()["m"].Equal(dst.StateDict()["m"]))
	})

	t.Run("sgd", func(t *testing.T) {
		tgt := newTarget(1.0)
		tgt.setGrad(1.0)
		src := optim.NewSGD(tgt, optim.SGDConfig{Momentum: 0.9})
		src.Update()

		dst := optim.NewSGD(newTarget(0), optim.SGDConfig{Momentum: 0.9})
		require.NoError(t, dst.LoadStateDict(src.StateDict()))
		assert.True(t, src.StateDict()["velocity"].Equal(dst.StateDict()["velocity"]))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		dst := optim.NewRMSProp(newTarget(0, 0, 0), optim.RMSPropConfig{})
		err := dst.LoadStateDict(map[string]*tensor.Matrix{"mean_sq": tensor.Zeros(2, 1)})
		assert.Error(t, err)
	})

	t.Run("unbound", func(t *testing.T) {
		dst := optim.NewRMSProp(nil, optim.RMSPropConfig{})
		assert.Error(t, dst.LoadStateDict(nil))
	})
}
