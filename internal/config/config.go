// Package config defines the YAML run file that drives the kiln CLI.
// A run file names the dataset, the model architecture, the optimizer
// and its hyperparameters, and the output paths. Absent keys keep
// their defaults, unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a complete training run description.
type Config struct {
	Seed       int64           `yaml:"seed"`
	Epochs     int             `yaml:"epochs"`
	LogEvery   int             `yaml:"log_every"`
	Dataset    DatasetConfig   `yaml:"dataset"`
	Model      ModelConfig     `yaml:"model"`
	Optimizer  OptimizerConfig `yaml:"optimizer"`
	Checkpoint string          `yaml:"checkpoint"`
	Monitor    MonitorConfig   `yaml:"monitor"`
}

// DatasetConfig selects and parameterizes the training data.
type DatasetConfig struct {
	Kind      string `yaml:"kind"` // mnist, fashion, csv or synthetic
	Dir       string `yaml:"dir"`  // directory with IDX files
	Path      string `yaml:"path"` // CSV file path
	BatchSize int    `yaml:"batch_size"`
	Samples   int    `yaml:"samples"` // synthetic sample count
}

// ModelConfig describes the classifier architecture.
type ModelConfig struct {
	Hidden     []int  `yaml:"hidden"`     // hidden layer widths
	Activation string `yaml:"activation"` // relu, sigmoid or tanh
}

// OptimizerConfig selects the optimizer and its hyperparameters.
type OptimizerConfig struct {
	Kind     string  `yaml:"kind"` // sgd or adam
	LR       float32 `yaml:"lr"`
	Momentum float32 `yaml:"momentum"` // sgd only
	Beta1    float32 `yaml:"beta1"`    // adam only
	Beta2    float32 `yaml:"beta2"`    // adam only
	Eps      float32 `yaml:"eps"`      // adam only
}

// MonitorConfig configures the optional live monitor.
type MonitorConfig struct {
	Addr string `yaml:"addr"` // listen address, empty disables the monitor
}

// Default returns the configuration used when a key is absent from the
// run file.
func Default() Config {
	return Config{
		Seed:     42,
		Epochs:   5,
		LogEvery: 1,
		Dataset: DatasetConfig{
			Kind:      "synthetic",
			BatchSize: 32,
			Samples:   512,
		},
		Model: ModelConfig{
			Hidden:     []int{128},
			Activation: "relu",
		},
		Optimizer: OptimizerConfig{
			Kind:     "sgd",
			LR:       0.01,
			Momentum: 0,
			Beta1:    0.9,
			Beta2:    0.999,
			Eps:      1e-8,
		},
	}
}

// Load reads a YAML run file on top of the defaults. Unknown keys are
// an error so a typo cannot silently fall back to a default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FieldError reports one invalid configuration value.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

func fieldErr(field string, value any, reason string) error {
	return &FieldError{Field: field, Value: value, Reason: reason}
}

// Validate checks every field and returns all failures joined, so a
// run file with three mistakes reports three errors on one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Epochs < 1 {
		errs = append(errs, fieldErr("epochs", c.Epochs, "must be at least 1"))
	}
	if c.Dataset.BatchSize < 1 {
		errs = append(errs, fieldErr("dataset.batch_size", c.Dataset.BatchSize, "must be at least 1"))
	}

	switch c.Dataset.Kind {
	case "mnist", "fashion":
		if c.Dataset.Dir == "" {
			errs = append(errs, fieldErr("dataset.dir", c.Dataset.Dir, "required for "+c.Dataset.Kind))
		}
	case "csv":
		if c.Dataset.Path == "" {
			errs = append(errs, fieldErr("dataset.path", c.Dataset.Path, "required for csv"))
		}
	case "synthetic":
		if c.Dataset.Samples < 1 {
			errs = append(errs, fieldErr("dataset.samples", c.Dataset.Samples, "must be at least 1"))
		}
	default:
		errs = append(errs, fieldErr("dataset.kind", c.Dataset.Kind, "must be mnist, fashion, csv or synthetic"))
	}

	for i, width := range c.Model.Hidden {
		if width < 1 {
			errs = append(errs, fieldErr(fmt.Sprintf("model.hidden[%d]", i), width, "must be at least 1"))
		}
	}
	switch c.Model.Activation {
	case "relu", "sigmoid", "tanh":
	default:
		errs = append(errs, fieldErr("model.activation", c.Model.Activation, "must be relu, sigmoid or tanh"))
	}

	switch c.Optimizer.Kind {
	case "sgd", "adam":
	default:
		errs = append(errs, fieldErr("optimizer.kind", c.Optimizer.Kind, "must be sgd or adam"))
	}
	if c.Optimizer.LR <= 0 {
		errs = append(errs, fieldErr("optimizer.lr", c.Optimizer.LR, "must be positive"))
	}
	if c.Optimizer.Momentum < 0 || c.Optimizer.Momentum >= 1 {
		errs = append(errs, fieldErr("optimizer.momentum", c.Optimizer.Momentum, "must be in [0, 1)"))
	}

	return errors.Join(errs...)
}
