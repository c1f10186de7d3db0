// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// MaxPool2D downsamples feature maps by taking the maximum of each spatial
// window. It has no trainable parameters.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a max pooling layer. A stride of 0 defaults to the
// kernel size, giving non-overlapping windows.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if stride == 0 {
		stride = kernelSize
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, backend: backend}
}

// Forward maps [batch, channels, H, W] to [batch, channels, H', W'].
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("nn: MaxPool2D.Forward: expected 4D input, got %v", input.Shape()))
	}
	out := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride)
	return tensor.New[float32](out, m.backend)
}

// Parameters returns nil; pooling is parameter-free.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }
