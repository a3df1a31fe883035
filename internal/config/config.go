// Package config loads YAML descriptions of a sparse bias layer, its init
// rule and its optimizer.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/born-sae/internal/nn"
	"github.com/born-ml/born-sae/internal/optim"
	"github.com/born-ml/born-sae/internal/tensor"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of a layer configuration file.
type Config struct {
	Layer      LayerConfig      `yaml:"layer"`
	Init       InitConfig       `yaml:"init"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
}

// LayerConfig sizes the layer.
type LayerConfig struct {
	OutSize    int `yaml:"out_size"`
	SampleSize int `yaml:"sample_size"`
}

// InitConfig selects the weight init rule. Unused fields are ignored.
type InitConfig struct {
	Rule  string  `yaml:"rule"` // zero, const, uniform, xavier, gaussian
	Value float64 `yaml:"value"`
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
	Mean  float64 `yaml:"mean"`
	Std   float64 `yaml:"std"`
	Seed  int64   `yaml:"seed"`
}

// OptimizerConfig selects the optimizer. Zero values take the optimizer defaults.
type OptimizerConfig struct {
	Type     string     `yaml:"type"` // rmsprop, sgd, adam
	LR       float64    `yaml:"lr"`
	Alpha    float64    `yaml:"alpha"`
	Eps      float64    `yaml:"eps"`
	Momentum float64    `yaml:"momentum"`
	Betas    [2]float64 `yaml:"betas"`
}

// CheckpointConfig controls how layers are saved.
type CheckpointConfig struct {
	DType string `yaml:"dtype"` // float64, float32, float16, bfloat16
}

// Default returns the configuration matching nn.NewSparseBias defaults.
func Default() Config {
	return Config{
		Layer:      LayerConfig{OutSize: 1, SampleSize: 1},
		Init:       InitConfig{Rule: "zero"},
		Optimizer:  OptimizerConfig{Type: "rmsprop"},
		Checkpoint: CheckpointConfig{DType: "float64"},
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks sizes, rule and optimizer names and hyperparameter ranges.
func (c Config) Validate() error {
	if c.Layer.OutSize <= 0 {
		return fmt.Errorf("%w: layer.out_size must be positive, got %d", ErrInvalidConfig, c.Layer.OutSize)
	}
	if c.Layer.SampleSize <= 0 {
		return fmt.Errorf("%w: layer.sample_size must be positive, got %d", ErrInvalidConfig, c.Layer.SampleSize)
	}

	switch c.Init.Rule {
	case "zero", "const", "xavier":
	case "uniform":
		if c.Init.High <= c.Init.Low {
			return fmt.Errorf("%w: init.high must be greater than init.low", ErrInvalidConfig)
		}
	case "gaussian":
		if c.Init.Std < 0 {
			return fmt.Errorf("%w: init.std must not be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown init.rule %q", ErrInvalidConfig, c.Init.Rule)
	}

	switch c.Optimizer.Type {
	case "rmsprop", "sgd", "adam":
	default:
		return fmt.Errorf("%w: unknown optimizer.type %q", ErrInvalidConfig, c.Optimizer.Type)
	}
	if c.Optimizer.LR < 0 {
		return fmt.Errorf("%w: optimizer.lr must not be negative", ErrInvalidConfig)
	}
	if c.Optimizer.Momentum < 0 || c.Optimizer.Momentum >= 1 {
		return fmt.Errorf("%w: optimizer.momentum must be in [0, 1)", ErrInvalidConfig)
	}
	if c.Optimizer.Alpha < 0 || c.Optimizer.Alpha >= 1 {
		return fmt.Errorf("%w: optimizer.alpha must be in [0, 1)", ErrInvalidConfig)
	}
	for i, beta := range c.Optimizer.Betas {
		if beta < 0 || beta >= 1 {
			return fmt.Errorf("%w: optimizer.betas[%d] must be in [0, 1)", ErrInvalidConfig, i)
		}
	}
	if c.Optimizer.Eps < 0 {
		return fmt.Errorf("%w: optimizer.eps must not be negative", ErrInvalidConfig)
	}

	if _, ok := tensor.ParseDataType(c.Checkpoint.DType); !ok {
		return fmt.Errorf("%w: unknown checkpoint.dtype %q", ErrInvalidConfig, c.Checkpoint.DType)
	}
	return nil
}

// InitRule returns the configured weight init rule.
func (c Config) InitRule() nn.InitRule {
	i := c.Init
	switch i.Rule {
	case "const":
		return nn.ConstInit{Value: i.Value}
	case "uniform":
		return nn.UniformInit{Low: i.Low, High: i.High, Seed: i.Seed}
	case "xavier":
		return nn.XavierInit{Seed: i.Seed}
	case "gaussian":
		return nn.GaussianInit{Mean: i.Mean, Std: i.Std, Seed: i.Seed}
	default:
		return nn.ZeroInit{}
	}
}

// OptimizerFactory returns a factory for the configured optimizer.
func (c Config) OptimizerFactory() optim.Factory {
	o := c.Optimizer
	switch o.Type {
	case "sgd":
		return optim.SGDFactory(optim.SGDConfig{LR: o.LR, Momentum: o.Momentum})
	case "adam":
		return optim.AdamFactory(optim.AdamConfig{LR: o.LR, Betas: o.Betas, Eps: o.Eps})
	default:
		return optim.RMSPropFactory(optim.RMSPropConfig{LR: o.LR, Alpha: o.Alpha, Eps: o.Eps})
	}
}

// DType returns the checkpoint storage type.
func (c Config) DType() tensor.DataType {
	dt, _ := tensor.ParseDataType(c.Checkpoint.DType)
	return dt
}

// NewLayer builds a SparseBias from the configuration. The layer owns its optimizer.
func (c Config) NewLayer() *nn.SparseBias {
	return nn.NewSparseBias(c.Layer.OutSize, c.Layer.SampleSize,
		nn.WithInitRule(c.InitRule()),
		nn.WithOptimizer(c.OptimizerFactory()),
	)
}
