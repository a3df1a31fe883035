package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-sae/internal/nn"
	"github.com/born-ml/born-sae/internal/tensor"
)

const sampleYAML = `
layer:
  out_size: 3
  sample_size: 2
init:
  rule: const
  value: 0.5
optimizer:
  type: sgd
  lr: 0.1
  momentum: 0.9
checkpoint:
  dtype: float16
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Layer.OutSize)
	assert.Equal(t, 2, cfg.Layer.SampleSize)
	assert.Equal(t, nn.ConstInit{Value: 0.5}, cfg.InitRule())
	assert.Equal(t, tensor.Float16, cfg.DType())

	layer := cfg.NewLayer()
	defer layer.Close()
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, layer.Weights().Data())
	assert.Equal(t, "sgd", layer.Optimizer().Name())
	assert.Equal(t, 0.1, layer.Optimizer().GetLR())
	assert.Equal(t, nn.Owned, layer.Ownership())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	layer := cfg.NewLayer()
	defer layer.Close()
	assert.Equal(t, "rmsprop", layer.Optimizer().Name())
	assert.Equal(t, []float64{0}, layer.Weights().Data())
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "layer:\n  out_size: 2\n  colour: red\n",
		"zero out size":     "layer:\n  out_size: 0\n",
		"negative samples":  "layer:\n  sample_size: -1\n",
		"unknown rule":      "init:\n  rule: orthogonal\n",
		"bad uniform range": "init:\n  rule: uniform\n  low: 1\n  high: 1\n",
		"unknown optimizer": "optimizer:\n  type: lbfgs\n",
		"bad momentum":      "optimizer:\n  type: sgd\n  momentum: 1.5\n",
		"beta1 of one":      "optimizer:\n  type: adam\n  betas: [1, 0.999]\n",
		"negative beta2":    "optimizer:\n  type: adam\n  betas: [0.9, -0.5]\n",
		"alpha above one":   "optimizer:\n  type: rmsprop\n  alpha: 2\n",
		"negative eps":      "optimizer:\n  type: rmsprop\n  eps: -1\n",
		"unknown dtype":     "checkpoint:\n  dtype: int8\n",
		"malformed":         "layer: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestInitRule(t *testing.T) {
	tests := []struct {
		init InitConfig
		want nn.InitRule
	}{
		{InitConfig{Rule: "zero"}, nn.ZeroInit{}},
		{InitConfig{Rule: "xavier", Seed: 4}, nn.XavierInit{Seed: 4}},
		{InitConfig{Rule: "uniform", Low: -1, High: 1, Seed: 2}, nn.UniformInit{Low: -1, High: 1, Seed: 2}},
		{InitConfig{Rule: "gaussian", Mean: 1, Std: 0.1, Seed: 3}, nn.GaussianInit{Mean: 1, Std: 0.1, Seed: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.init.Rule, func(t *testing.T) {
			cfg := Default()
			cfg.Init = tt.init
			assert.Equal(t, tt.want, cfg.InitRule())
		})
	}
}

func TestOptimizerFactory(t *testing.T) {
	for _, name := range []string{"rmsprop", "sgd", "adam"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Optimizer.Type = name
			require.NoError(t, cfg.Validate())

			opt := cfg.OptimizerFactory()(nil)
			assert.Equal(t, name, opt.Name())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sgd", cfg.Optimizer.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
