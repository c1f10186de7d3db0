// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Dropout randomly zeroes activations with probability p during training,
// using inverted scaling so evaluation needs no correction: kept activations
// are multiplied by 1/(1-p) and evaluation is the identity.
//
// The mask is a constant tensor applied with an ordinary multiply, so the
// gradient tape handles the backward pass without a dedicated rule.
type Dropout[B tensor.Backend] struct {
	p        float64
	training bool
	rng      *rand.Rand
	backend  B
}

// NewDropout creates a Dropout module with drop probability p in [0, 1).
func NewDropout[B tensor.Backend](p float64, rng *rand.Rand, backend B) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("nn: Dropout: p must be in [0, 1), got %v", p))
	}
	return &Dropout[B]{p: p, training: true, rng: rng, backend: backend}
}

// SetTraining switches between the masking and identity behavior.
func (d *Dropout[B]) SetTraining(training bool) { d.training = training }

// Forward applies the mask during training and is the identity otherwise.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		return input
	}

	mask := tensor.Zeros[float32](input.Shape().Clone(), d.backend)
	md := mask.Data()
	scale := float32(1.0 / (1.0 - d.p))
	for i := range md {
		if d.rng.Float64() >= d.p {
			md[i] = scale
		}
	}
	return input.Mul(mask)
}

// Parameters returns nil; the mask is not trainable.
func (d *Dropout[B]) Parameters() []*Parameter[B] { return nil }
