// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// Conv2DOp records a convolution. Both gradients delegate to the backend's
// dedicated backward kernels.
type Conv2DOp struct {
	Input, Kernel   *tensor.RawTensor
	Out             *tensor.RawTensor
	Stride, Padding int
}

func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.Input, op.Kernel}
}
func (op *Conv2DOp) Output() *tensor.RawTensor { return op.Out }

func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(op.Input, op.Kernel, outputGrad, op.Stride, op.Padding),
		backend.Conv2DKernelBackward(op.Input, op.Kernel, outputGrad, op.Stride, op.Padding),
	}
}

// MaxPool2DOp records max pooling together with the argmax indices captured
// during the forward pass; the backward pass routes each output gradient to
// exactly the input position that won the window.
type MaxPool2DOp struct {
	Input      *tensor.RawTensor
	Out        *tensor.RawTensor
	MaxIndices []int
}

func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.Input} }
func (op *MaxPool2DOp) Output() *tensor.RawTensor   { return op.Out }

func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.MaxPool2DBackward(op.Input, outputGrad, op.MaxIndices),
	}
}
