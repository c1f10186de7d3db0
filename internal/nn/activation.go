// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// ReLU applies the rectifier max(0, x) element-wise.
type ReLU[B tensor.Backend] struct {
	backend B
}

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend](backend B) *ReLU[B] { return &ReLU[B]{backend: backend} }

func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32](r.backend.ReLU(input.Raw()), r.backend)
}

func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// Sigmoid applies the logistic function element-wise.
type Sigmoid[B tensor.Backend] struct {
	backend B
}

// NewSigmoid creates a Sigmoid activation module.
func NewSigmoid[B tensor.Backend](backend B) *Sigmoid[B] { return &Sigmoid[B]{backend: backend} }

func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32](s.backend.Sigmoid(input.Raw()), s.backend)
}

func (s *Sigmoid[B]) Parameters() []*Parameter[B] { return nil }

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[B tensor.Backend] struct {
	backend B
}

// NewTanh creates a Tanh activation module.
func NewTanh[B tensor.Backend](backend B) *Tanh[B] { return &Tanh[B]{backend: backend} }

func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32](t.backend.Tanh(input.Raw()), t.backend)
}

func (t *Tanh[B]) Parameters() []*Parameter[B] { return nil }

// Softmax normalizes the last dimension of a 2D tensor into probabilities.
// Training code should prefer the fused cross-entropy loss, which computes
// the softmax internally.
type Softmax[B tensor.Backend] struct {
	backend B
}

// NewSoftmax creates a Softmax module.
func NewSoftmax[B tensor.Backend](backend B) *Softmax[B] { return &Softmax[B]{backend: backend} }

func (s *Softmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32](s.backend.Softmax(input.Raw()), s.backend)
}

func (s *Softmax[B]) Parameters() []*Parameter[B] { return nil }
