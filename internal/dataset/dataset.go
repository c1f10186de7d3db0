// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset provides in-memory image classification datasets: the
// CIFAR-10 binary format and a generic image folder layout. Pixels are
// stored as CHW float32 planes scaled to [0, 1].
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Dataset holds a labeled image set in memory. Images are packed
// sample-major as [N, C, H, W] float32.
type Dataset struct {
	Name    string
	Classes []string

	Images []float32
	Labels []int32

	Channels int
	Height   int
	Width    int
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Labels) }

// sampleSize returns the float32 count of one image.
func (d *Dataset) sampleSize() int { return d.Channels * d.Height * d.Width }

// Image returns the pixel plane of sample i as a view into the dataset.
func (d *Dataset) Image(i int) []float32 {
	s := d.sampleSize()
	return d.Images[i*s : (i+1)*s]
}

// Validate checks the internal consistency of the dataset.
func (d *Dataset) Validate() error {
	if d.Channels < 1 || d.Height < 1 || d.Width < 1 {
		return fmt.Errorf("dataset %s: invalid dimensions %dx%dx%d", d.Name, d.Channels, d.Height, d.Width)
	}
	if len(d.Images) != d.Len()*d.sampleSize() {
		return fmt.Errorf("dataset %s: %d pixel values for %d samples of size %d",
			d.Name, len(d.Images), d.Len(), d.sampleSize())
	}
	numClasses := int32(len(d.Classes))
	for i, label := range d.Labels {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("dataset %s: sample %d has label %d, want [0, %d)", d.Name, i, label, numClasses)
		}
	}
	return nil
}

// Split partitions the dataset into a head of fraction frac and the
// remainder, preserving order. Used to carve a validation set off the
// training data.
func (d *Dataset) Split(frac float64) (*Dataset, *Dataset) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	n := int(float64(d.Len()) * frac)
	s := d.sampleSize()

	head := &Dataset{
		Name: d.Name, Classes: d.Classes,
		Images: d.Images[:n*s], Labels: d.Labels[:n],
		Channels: d.Channels, Height: d.Height, Width: d.Width,
	}
	tail := &Dataset{
		Name: d.Name, Classes: d.Classes,
		Images: d.Images[n*s:], Labels: d.Labels[n:],
		Channels: d.Channels, Height: d.Height, Width: d.Width,
	}
	return head, tail
}

// Shuffle permutes the samples in place.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	s := d.sampleSize()
	tmp := make([]float32, s)
	rng.Shuffle(d.Len(), func(i, j int) {
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
		a, b := d.Images[i*s:(i+1)*s], d.Images[j*s:(j+1)*s]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	})
}

// Batch assembles the samples at indices into an image tensor [B, C, H, W]
// and a label tensor [B] on the given backend.
func Batch[B tensor.Backend](d *Dataset, indices []int, backend B) (*tensor.Tensor[float32, B], *tensor.Tensor[int32, B]) {
	s := d.sampleSize()
	images := tensor.Zeros[float32](tensor.Shape{len(indices), d.Channels, d.Height, d.Width}, backend)
	labels := tensor.Zeros[int32](tensor.Shape{len(indices)}, backend)

	id, ld := images.Data(), labels.Data()
	for bi, si := range indices {
		copy(id[bi*s:(bi+1)*s], d.Image(si))
		ld[bi] = d.Labels[si]
	}
	return images, labels
}

// Batches yields index slices of at most batchSize covering the dataset,
// shuffled when rng is non-nil. The final short batch is included.
func (d *Dataset) Batches(batchSize int, rng *rand.Rand) [][]int {
	perm := make([]int, d.Len())
	for i := range perm {
		perm[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	}

	var batches [][]int
	for start := 0; start < len(perm); start += batchSize {
		end := start + batchSize
		if end > len(perm) {
			end = len(perm)
		}
		batches = append(batches, perm[start:end])
	}
	return batches
}
