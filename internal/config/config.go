// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads training run configuration from YAML, layered with
// command line overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	// Dataset selects the input pipeline: "cifar10" reads the binary
	// batches under DataDir, "folder" reads class subdirectories.
	Dataset   string `yaml:"dataset"`
	DataDir   string `yaml:"data_dir"`
	Download  bool   `yaml:"download"`
	ImageSize int    `yaml:"image_size"`

	Epochs    int     `yaml:"epochs"`
	BatchSize int     `yaml:"batch_size"`
	Optimizer string  `yaml:"optimizer"`
	LR        float64 `yaml:"lr"`
	Momentum  float64 `yaml:"momentum"`
	Dropout   float64 `yaml:"dropout"`
	ValSplit  float64 `yaml:"val_split"`
	Seed      int64   `yaml:"seed"`
	LogEvery  int     `yaml:"log_every"`

	Backend string `yaml:"backend"` // "cpu" or "gpu"

	CheckpointDir   string `yaml:"checkpoint_dir"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	Resume          string `yaml:"resume"`
}

// Overrides captures CLI supplied values. Zero values leave the config
// untouched.
type Overrides struct {
	Dataset   string
	DataDir   string
	Epochs    int
	BatchSize int
	Optimizer string
	LR        float64
	Seed      int64
	Backend   string
	Resume    string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Dataset:   "cifar10",
		DataDir:   "./data",
		ImageSize: 32,
		Epochs:    10,
		BatchSize: 32,
		Optimizer: "adam",
		LR:        0.001,
		Momentum:  0.9,
		Dropout:   0.5,
		ValSplit:  0.1,
		Seed:      42,
		LogEvery:  50,
		Backend:   "cpu",
	}
}

// Load reads and validates a Config from a YAML file, starting from the
// defaults so omitted keys keep sensible values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Dataset != "" {
		c.Dataset = o.Dataset
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.LR > 0 {
		c.LR = o.LR
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Resume != "" {
		c.Resume = o.Resume
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Dataset {
	case "cifar10", "folder":
	default:
		return fmt.Errorf("dataset must be \"cifar10\" or \"folder\" (got %q)", c.Dataset)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.ImageSize < 4 || c.ImageSize%4 != 0 {
		return fmt.Errorf("image_size must be a positive multiple of 4 (got %d)", c.ImageSize)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	switch c.Optimizer {
	case "sgd", "adam":
	default:
		return fmt.Errorf("optimizer must be \"sgd\" or \"adam\" (got %q)", c.Optimizer)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be > 0 (got %g)", c.LR)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1) (got %g)", c.Dropout)
	}
	if c.ValSplit < 0 || c.ValSplit >= 1 {
		return fmt.Errorf("val_split must be in [0, 1) (got %g)", c.ValSplit)
	}
	switch c.Backend {
	case "cpu", "gpu":
	default:
		return fmt.Errorf("backend must be \"cpu\" or \"gpu\" (got %q)", c.Backend)
	}
	if c.LogEvery <= 0 {
		return fmt.Errorf("log_every must be > 0 (got %d)", c.LogEvery)
	}
	return nil
}
