// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs the epoch loop: batching, forward/backward, optimizer
// steps, validation and periodic checkpoints.
package train

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/serialization"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Config holds the training loop knobs.
type Config struct {
	Epochs    int
	BatchSize int
	LogEvery  int // batches between log lines, 0 disables

	Optimizer string // "sgd" or "adam"
	LR        float64
	Momentum  float64

	Seed int64

	CheckpointDir   string // empty disables checkpointing
	CheckpointEvery int    // epochs, defaults to 1
}

// EpochStats is the outcome of one epoch.
type EpochStats struct {
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	ValLoss       float64
	ValAccuracy   float64
	Duration      time.Duration
}

// Trainer drives a model through epochs of a dataset on an autodiff-wrapped
// backend.
type Trainer[B tensor.Backend] struct {
	model     *nn.Sequential[*autodiff.Backend[B]]
	backend   *autodiff.Backend[B]
	optimizer optim.Optimizer
	criterion *nn.CrossEntropyLoss[*autodiff.Backend[B]]
	cfg       Config
	rng       *rand.Rand
	step      int64
	history   []EpochStats
}

// New validates cfg, builds the optimizer and returns a ready trainer.
func New[B tensor.Backend](model *nn.Sequential[*autodiff.Backend[B]], backend *autodiff.Backend[B], cfg Config) (*Trainer[B], error) {
	if cfg.Epochs < 1 {
		return nil, fmt.Errorf("epochs must be >= 1, got %d", cfg.Epochs)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.CheckpointEvery < 1 {
		cfg.CheckpointEvery = 1
	}

	var optimizer optim.Optimizer
	switch cfg.Optimizer {
	case "", "sgd":
		cfg.Optimizer = "sgd"
		optimizer = optim.NewSGD(model.Parameters(), optim.SGDConfig{
			LR:       float32(cfg.LR),
			Momentum: float32(cfg.Momentum),
		})
	case "adam":
		optimizer = optim.NewAdam(model.Parameters(), optim.AdamConfig{
			LR: float32(cfg.LR),
		})
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
	}

	return &Trainer[B]{
		model:     model,
		backend:   backend,
		optimizer: optimizer,
		criterion: nn.NewCrossEntropyLoss(backend),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// History returns the per-epoch stats accumulated so far.
func (t *Trainer[B]) History() []EpochStats { return t.history }

// Fit trains for the configured number of epochs, validating after each one.
// valSet may be nil. Fit stops early when ctx is canceled, returning the
// stats of the epochs that completed along with ctx.Err().
func (t *Trainer[B]) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset) ([]EpochStats, error) {
	if err := trainSet.Validate(); err != nil {
		return nil, err
	}
	if trainSet.Len() == 0 {
		return nil, fmt.Errorf("training dataset %s is empty", trainSet.Name)
	}
	if valSet != nil {
		if err := valSet.Validate(); err != nil {
			return nil, err
		}
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		stats := EpochStats{Epoch: epoch}

		var err error
		stats.TrainLoss, stats.TrainAccuracy, err = t.trainEpoch(ctx, trainSet)
		if err != nil {
			return t.history, err
		}
		if valSet != nil {
			stats.ValLoss, stats.ValAccuracy = t.Evaluate(valSet)
		}
		stats.Duration = time.Since(start)
		t.history = append(t.history, stats)

		log.Printf("epoch=%d/%d train_loss=%.4f train_acc=%.4f val_loss=%.4f val_acc=%.4f elapsed=%s",
			epoch, t.cfg.Epochs, stats.TrainLoss, stats.TrainAccuracy,
			stats.ValLoss, stats.ValAccuracy, stats.Duration.Round(time.Millisecond))

		if t.cfg.CheckpointDir != "" && epoch%t.cfg.CheckpointEvery == 0 {
			path := filepath.Join(t.cfg.CheckpointDir, fmt.Sprintf("epoch-%03d.kiln", epoch))
			if err := t.SaveCheckpoint(path, stats); err != nil {
				return t.history, fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}
	}
	return t.history, nil
}

func (t *Trainer[B]) trainEpoch(ctx context.Context, trainSet *dataset.Dataset) (avgLoss, accuracy float64, err error) {
	t.model.SetTraining(true)
	t.backend.Tape().StartRecording()
	defer t.backend.Tape().StopRecording()

	var window Window
	totalLoss := 0.0
	totalCorrect := 0
	totalSamples := 0

	batches := trainSet.Batches(t.cfg.BatchSize, t.rng)
	for i, indices := range batches {
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		default:
		}

		startData := time.Now()
		images, labels := dataset.Batch(trainSet, indices, t.backend)
		dataTime := time.Since(startData)

		startCompute := time.Now()
		t.optimizer.ZeroGrad()
		logits := t.model.Forward(images)
		loss := t.criterion.Forward(logits, labels)
		lossValue := float64(loss.Item())

		grads := t.backend.Backward(loss.Raw())
		t.optimizer.Step(grads)
		t.backend.Tape().Clear()
		computeTime := time.Since(startCompute)
		t.step++

		correct := int(nn.Accuracy(logits, labels)*float64(len(indices)) + 0.5)
		totalLoss += lossValue
		totalCorrect += correct
		totalSamples += len(indices)

		window.Record(len(indices), dataTime, computeTime, lossValue, correct)
		if t.cfg.LogEvery > 0 && (i+1)%t.cfg.LogEvery == 0 {
			snap := window.Snapshot()
			log.Printf("step=%d batch=%d/%d images_per_sec=%.1f data_ms=%.2f compute_ms=%.2f loss=%.4f acc=%.4f",
				t.step, i+1, len(batches), snap.ImagesPerSec, snap.AvgDataMS, snap.AvgComputeMS,
				snap.AvgLoss, snap.Accuracy)
		}
	}

	return totalLoss / float64(len(batches)), float64(totalCorrect) / float64(totalSamples), nil
}

// Evaluate computes average loss and accuracy over the dataset without
// touching the gradient tape.
func (t *Trainer[B]) Evaluate(set *dataset.Dataset) (avgLoss, accuracy float64) {
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	wasRecording := t.backend.Tape().IsRecording()
	t.backend.Tape().StopRecording()
	defer func() {
		if wasRecording {
			t.backend.Tape().StartRecording()
		}
	}()

	totalLoss := 0.0
	totalCorrect := 0
	totalSamples := 0
	batches := set.Batches(t.cfg.BatchSize, nil)
	if len(batches) == 0 {
		return 0, 0
	}
	for _, indices := range batches {
		images, labels := dataset.Batch(set, indices, t.backend)
		logits := t.model.Forward(images)
		loss := t.criterion.Forward(logits, labels)

		totalLoss += float64(loss.Item())
		totalCorrect += int(nn.Accuracy(logits, labels)*float64(len(indices)) + 0.5)
		totalSamples += len(indices)
	}
	return totalLoss / float64(len(batches)), float64(totalCorrect) / float64(totalSamples)
}

// SaveCheckpoint writes model and optimizer state to a .kiln file.
func (t *Trainer[B]) SaveCheckpoint(path string, stats EpochStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	state := t.model.StateDict()
	if stateful, ok := t.optimizer.(interface {
		StateDict() map[string]*tensor.RawTensor
	}); ok {
		for name, raw := range stateful.StateDict() {
			state["optimizer."+name] = raw
		}
	}

	header := serialization.Header{
		ModelType: "Sequential",
		CheckpointMeta: &serialization.CheckpointMeta{
			Epoch:         stats.Epoch,
			Step:          t.step,
			Loss:          stats.TrainLoss,
			Accuracy:      stats.TrainAccuracy,
			OptimizerType: t.cfg.Optimizer,
		},
	}
	return serialization.SaveWithHeader(path, state, header)
}

// LoadCheckpoint restores model and optimizer state from a .kiln file and
// returns its checkpoint metadata.
func (t *Trainer[B]) LoadCheckpoint(path string) (*serialization.CheckpointMeta, error) {
	f, err := serialization.Load(path)
	if err != nil {
		return nil, err
	}

	modelState := map[string]*tensor.RawTensor{}
	optState := map[string]*tensor.RawTensor{}
	for name, raw := range f.StateDict() {
		if rest, ok := strings.CutPrefix(name, "optimizer."); ok {
			optState[rest] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := t.model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("failed to restore model: %w", err)
	}
	if stateful, ok := t.optimizer.(interface {
		LoadStateDict(map[string]*tensor.RawTensor) error
	}); ok && len(optState) > 0 {
		if err := stateful.LoadStateDict(optState); err != nil {
			return nil, fmt.Errorf("failed to restore optimizer: %w", err)
		}
	}

	if meta := f.Header.CheckpointMeta; meta != nil {
		t.step = meta.Step
	}
	return f.Header.CheckpointMeta, nil
}
