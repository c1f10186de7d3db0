// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

func newEvalCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Overrides
		batchSize  int
	)

	c := &cobra.Command{
		Use:   "eval CHECKPOINT",
		Short: "Evaluate a checkpoint on the test split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(overrides)
			if batchSize > 0 {
				cfg.BatchSize = batchSize
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return withBackend(cfg, func(inner tensor.Backend) error {
				return runEval(cmd, cfg, inner, args[0])
			})
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	c.Flags().StringVar(&overrides.Dataset, "dataset", "", "dataset kind: cifar10 or folder")
	c.Flags().StringVar(&overrides.DataDir, "data", "", "dataset directory")
	c.Flags().StringVar(&overrides.Backend, "backend", "", "compute backend: cpu or gpu")
	c.Flags().IntVar(&batchSize, "batch", 0, "batch size")
	return c
}

func runEval(cmd *cobra.Command, cfg *config.Config, inner tensor.Backend, checkpoint string) error {
	_, _, testSet, err := loadDatasets(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if testSet == nil {
		return fmt.Errorf("dataset %q has no test split", cfg.Dataset)
	}

	backend := autodiff.New(inner)
	model, err := train.NewConvNet(train.ConvNetConfig{
		Channels:   testSet.Channels,
		ImageSize:  testSet.Width,
		NumClasses: len(testSet.Classes),
		Dropout:    cfg.Dropout,
	}, rand.New(rand.NewSource(cfg.Seed)), backend)
	if err != nil {
		return err
	}

	trainer, err := train.New(model, backend, train.Config{
		Epochs:    1,
		BatchSize: cfg.BatchSize,
		Optimizer: cfg.Optimizer,
		LR:        cfg.LR,
	})
	if err != nil {
		return err
	}
	if _, err := trainer.LoadCheckpoint(checkpoint); err != nil {
		return err
	}

	loss, acc := trainer.Evaluate(testSet)
	cmd.Printf("checkpoint: %s\n", checkpoint)
	cmd.Printf("samples:    %d\n", testSet.Len())
	cmd.Printf("loss:       %.4f\n", loss)
	cmd.Printf("accuracy:   %.2f%%\n", acc*100)
	return nil
}
