// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Conv2D is a 2D convolution layer over [batch, channels, height, width]
// feature maps.
//
// The kernel has shape [outChannels, inChannels, kernelSize, kernelSize] and
// the bias [1, outChannels, 1, 1] so it broadcasts over batch and space.
// Kernels use He initialization since convolutions are normally followed by
// ReLU.
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int
	kernel      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewConv2D creates a Conv2D layer with freshly initialized parameters.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand, backend B) *Conv2D[B] {
	fanIn := inChannels * kernelSize * kernelSize
	kernel := He(fanIn, tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}, rng, backend)
	bias := Zeros(tensor.Shape{1, outChannels, 1, 1}, backend)
	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		kernel:      NewParameter("kernel", kernel),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward maps [batch, inChannels, H, W] to [batch, outChannels, H', W'] with
// H' = (H + 2*padding - kernelSize)/stride + 1.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("nn: Conv2D.Forward: expected 4D input [batch, channels, h, w], got %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("nn: Conv2D.Forward: expected %d input channels, got %d", c.inChannels, shape[1]))
	}

	out := c.backend.Conv2D(input.Raw(), c.kernel.Tensor().Raw(), c.stride, c.padding)
	conv := tensor.New[float32](out, c.backend)
	return conv.Add(c.bias.Tensor())
}

// Parameters returns kernel and bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.kernel, c.bias}
}

// OutputSize returns the spatial output size for a square input of size in.
func (c *Conv2D[B]) OutputSize(in int) int {
	return (in+2*c.padding-c.kernelSize)/c.stride + 1
}

// StateDict exports kernel and bias.
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"kernel": c.kernel.Tensor().Raw(),
		"bias":   c.bias.Tensor().Raw(),
	}
}

// LoadStateDict restores kernel and bias, validating shapes and dtypes.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	kernelShape := tensor.Shape{c.outChannels, c.inChannels, c.kernelSize, c.kernelSize}
	if err := loadParam(stateDict, "kernel", c.kernel, kernelShape); err != nil {
		return err
	}
	return loadParam(stateDict, "bias", c.bias, tensor.Shape{1, c.outChannels, 1, 1})
}
