// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Flatten collapses all dimensions after the batch dimension, turning
// [batch, c, h, w] feature maps into [batch, c*h*w] vectors for dense layers.
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] { return &Flatten[B]{} }

// Forward reshapes input to [batch, rest].
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	rest := 1
	for _, d := range shape[1:] {
		rest *= d
	}
	return input.Reshape(shape[0], rest)
}

// Parameters returns nil; flattening is parameter-free.
func (f *Flatten[B]) Parameters() []*Parameter[B] { return nil }
