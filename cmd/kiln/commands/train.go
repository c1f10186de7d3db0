// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/backend/webgpu"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

func newTrainCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Overrides
		download   bool
	)

	c := &cobra.Command{
		Use:   "train",
		Short: "Train a CNN on CIFAR-10 or an image folder dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(overrides)
			if download {
				cfg.Download = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Ctrl-C finishes the current batch and saves what we have.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withBackend(cfg, func(inner tensor.Backend) error {
				return runTraining(ctx, cfg, inner)
			})
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	c.Flags().StringVar(&overrides.Dataset, "dataset", "", "dataset kind: cifar10 or folder")
	c.Flags().StringVar(&overrides.DataDir, "data", "", "dataset directory")
	c.Flags().IntVar(&overrides.Epochs, "epochs", 0, "number of epochs")
	c.Flags().IntVar(&overrides.BatchSize, "batch", 0, "batch size")
	c.Flags().StringVar(&overrides.Optimizer, "optimizer", "", "optimizer: sgd or adam")
	c.Flags().Float64Var(&overrides.LR, "lr", 0, "learning rate")
	c.Flags().Int64Var(&overrides.Seed, "seed", 0, "random seed")
	c.Flags().StringVar(&overrides.Backend, "backend", "", "compute backend: cpu or gpu")
	c.Flags().StringVar(&overrides.Resume, "resume", "", "checkpoint to resume from")
	c.Flags().BoolVar(&download, "download", false, "download CIFAR-10 if missing")
	return c
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// withBackend selects the compute backend from cfg and hands it to fn,
// falling back to the CPU when the GPU cannot be initialized.
func withBackend(cfg *config.Config, fn func(tensor.Backend) error) error {
	if cfg.Backend == "gpu" {
		gpu, err := webgpu.New()
		if err == nil {
			defer gpu.Release()
			log.Printf("backend=%s", gpu.Name())
			return fn(gpu)
		}
		log.Printf("gpu unavailable (%v), falling back to cpu", err)
	}
	backend := cpu.New()
	log.Printf("backend=%s", backend.Name())
	return fn(backend)
}

func runTraining(ctx context.Context, cfg *config.Config, inner tensor.Backend) error {
	trainSet, valSet, _, err := loadDatasets(ctx, cfg)
	if err != nil {
		return err
	}
	log.Printf("dataset=%s train_samples=%d classes=%d", cfg.Dataset, trainSet.Len(), len(trainSet.Classes))

	backend := autodiff.New(inner)
	rng := rand.New(rand.NewSource(cfg.Seed))
	model, err := train.NewConvNet(train.ConvNetConfig{
		Channels:   trainSet.Channels,
		ImageSize:  trainSet.Width,
		NumClasses: len(trainSet.Classes),
		Dropout:    cfg.Dropout,
	}, rng, backend)
	if err != nil {
		return err
	}

	trainer, err := train.New(model, backend, train.Config{
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		LogEvery:        cfg.LogEvery,
		Optimizer:       cfg.Optimizer,
		LR:              cfg.LR,
		Momentum:        cfg.Momentum,
		Seed:            cfg.Seed,
		CheckpointDir:   cfg.CheckpointDir,
		CheckpointEvery: cfg.CheckpointEvery,
	})
	if err != nil {
		return err
	}

	if cfg.Resume != "" {
		meta, err := trainer.LoadCheckpoint(cfg.Resume)
		if err != nil {
			return fmt.Errorf("failed to resume from %s: %w", cfg.Resume, err)
		}
		if meta != nil {
			log.Printf("resumed from %s at epoch %d (loss %.4f)", cfg.Resume, meta.Epoch, meta.Loss)
		}
	}

	history, err := trainer.Fit(ctx, trainSet, valSet)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		last := history[len(history)-1]
		log.Printf("done: train_acc=%.4f val_acc=%.4f", last.TrainAccuracy, last.ValAccuracy)
	}
	return nil
}

// loadDatasets returns the train, validation and test sets per cfg. The
// validation set is carved off the head of the shuffled training data.
func loadDatasets(ctx context.Context, cfg *config.Config) (trainSet, valSet, testSet *dataset.Dataset, err error) {
	switch cfg.Dataset {
	case "cifar10":
		dir := dataset.LocateCIFAR10(cfg.DataDir)
		if cfg.Download {
			dir, err = dataset.DownloadCIFAR10(ctx, cfg.DataDir)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		trainSet, testSet, err = dataset.LoadCIFAR10(dir)
		if err != nil {
			return nil, nil, nil, err
		}
	case "folder":
		folder, ferr := dataset.LoadImageFolder(cfg.DataDir, cfg.ImageSize)
		if ferr != nil {
			return nil, nil, nil, ferr
		}
		trainSet, testSet, valSet = folder.Train, folder.Test, folder.Validation
	default:
		return nil, nil, nil, fmt.Errorf("unknown dataset %q", cfg.Dataset)
	}

	if valSet == nil && cfg.ValSplit > 0 {
		trainSet.Shuffle(rand.New(rand.NewSource(cfg.Seed)))
		valSet, trainSet = trainSet.Split(cfg.ValSplit)
	}
	return trainSet, valSet, testSet, nil
}
