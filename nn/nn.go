// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for kiln's neural network layers.
package nn

import (
	"math/rand"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Module is the common interface of all layers.
type Module[B tensor.Backend] = nn.Module[B]

// StatefulModule is a module whose parameters can be exported and restored
// by name.
type StatefulModule = nn.StatefulModule

// TrainableModule is a module whose behavior differs between training and
// evaluation, such as Dropout.
type TrainableModule = nn.TrainableModule

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter wraps a tensor as a named parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer computing x·Wᵀ + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-initialized weights.
//
// Example:
//
//	layer := nn.NewLinear(784, 128, rng, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, rng, backend)
}

// Conv2D is a 2D convolution layer over NCHW input.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a convolution layer with He-initialized kernels.
//
// Example:
//
//	conv := nn.NewConv2D(3, 32, 3, 1, 1, rng, backend) // 3->32 channels, 3x3, stride 1, padding 1
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, rng *rand.Rand, backend B) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, rng, backend)
}

// MaxPool2D is a max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a pooling layer. A stride of 0 defaults to kernelSize.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, backend)
}

// Flatten reshapes [batch, ...] input to [batch, features].
type Flatten[B tensor.Backend] = nn.Flatten[B]

// NewFlatten creates a flatten layer.
func NewFlatten[B tensor.Backend]() *Flatten[B] { return nn.NewFlatten[B]() }

// Dropout zeroes a random fraction of activations during training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer with drop probability p in [0, 1).
func NewDropout[B tensor.Backend](p float64, rng *rand.Rand, backend B) *Dropout[B] {
	return nn.NewDropout(p, rng, backend)
}

// Activations

// ReLU applies max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU layer.
func NewReLU[B tensor.Backend](backend B) *ReLU[B] { return nn.NewReLU(backend) }

// Sigmoid applies the logistic function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a sigmoid layer.
func NewSigmoid[B tensor.Backend](backend B) *Sigmoid[B] { return nn.NewSigmoid(backend) }

// Tanh applies the hyperbolic tangent.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a tanh layer.
func NewTanh[B tensor.Backend](backend B) *Tanh[B] { return nn.NewTanh(backend) }

// Softmax normalizes rows to probability distributions.
type Softmax[B tensor.Backend] = nn.Softmax[B]

// NewSoftmax creates a softmax layer.
func NewSoftmax[B tensor.Backend](backend B) *Softmax[B] { return nn.NewSoftmax(backend) }

// Containers and loss

// Sequential chains modules and aggregates their parameters and state.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential chains the given modules in order.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// CrossEntropyLoss is softmax cross-entropy over class logits.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates the loss. On an autodiff backend it uses the
// fused softmax cross-entropy with its analytic gradient.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Accuracy returns the fraction of rows whose argmax matches the target.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	return nn.Accuracy(logits, targets)
}
