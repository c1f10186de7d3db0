// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops defines the differentiable operations recorded on the gradient
// tape. Each operation keeps the forward inputs it needs and computes input
// gradients from the output gradient by the chain rule.
package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward computes one gradient per input, in input order. A nil entry
	// means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward output tensor.
	Output() *tensor.RawTensor
}

// newLike allocates a zeroed float32 tensor shaped like t.
func newLike(t *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(t.Shape().Clone(), tensor.Float32, t.Device())
	if err != nil {
		panic(err)
	}
	return out
}

// reduceGrad sums grad down to shape, undoing broadcast expansion: extra
// leading dimensions are summed away, size-1 dimensions are summed with
// keepDim.
func reduceGrad(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	for len(grad.Shape()) > len(shape) {
		grad = backend.SumDim(grad, 0, false)
	}
	for d := range shape {
		if shape[d] == 1 && grad.Shape()[d] > 1 {
			grad = backend.SumDim(grad, d, true)
		}
	}
	if !grad.Shape().Equal(shape) {
		grad = backend.Reshape(grad, shape)
	}
	return grad
}
