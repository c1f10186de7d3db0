// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import "time"

// Window accumulates per-batch measurements between log lines.
type Window struct {
	samples int
	batches int
	data    time.Duration
	compute time.Duration
	loss    float64
	correct int
}

// Record adds one batch to the window.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, loss float64, correct int) {
	w.samples += batchSize
	w.batches++
	w.data += dataTime
	w.compute += computeTime
	w.loss += loss
	w.correct += correct
}

// Snapshot returns the aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.data + w.compute
	if total > 0 {
		snap.ImagesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.batches > 0 {
		snap.AvgDataMS = w.data.Seconds() * 1000 / float64(w.batches)
		snap.AvgComputeMS = w.compute.Seconds() * 1000 / float64(w.batches)
		snap.AvgLoss = w.loss / float64(w.batches)
	}
	if w.samples > 0 {
		snap.Accuracy = float64(w.correct) / float64(w.samples)
	}
	*w = Window{}
	return snap
}

// Snapshot is one loggable aggregate of training throughput and quality.
type Snapshot struct {
	ImagesPerSec float64
	AvgDataMS    float64
	AvgComputeMS float64
	AvgLoss      float64
	Accuracy     float64
}
