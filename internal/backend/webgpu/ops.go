// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

//go:build windows

package webgpu

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// binaryOp runs the shader for same-shape operands and defers broadcasting
// to the CPU fallback.
func (b *Backend) binaryOp(a, other *tensor.RawTensor, name, code string,
	cpuOp func(a, other *tensor.RawTensor) *tensor.RawTensor) *tensor.RawTensor {
	if !a.Shape().Equal(other.Shape()) {
		return cpuOp(a, other)
	}
	result, err := b.runBinaryOp(a, other, name, code)
	if err != nil {
		panic("webgpu: " + name + ": " + err.Error())
	}
	return result
}

// Add performs element-wise addition.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, "add", addShader, b.fallback.Add)
}

// Sub performs element-wise subtraction.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, "sub", subShader, b.fallback.Sub)
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, "mul", mulShader, b.fallback.Mul)
}

// Div performs element-wise division.
func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(a, other, "div", divShader, b.fallback.Div)
}

// MatMul multiplies two 2D matrices on GPU.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runMatMul(a, other)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return result
}

// Transpose swaps the dimensions of a 2D tensor on GPU.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runTranspose(x)
	if err != nil {
		panic("webgpu: Transpose: " + err.Error())
	}
	return result
}

// ReLU applies max(0, x) on GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runUnaryOp(x, "relu", reluShader)
	if err != nil {
		panic("webgpu: ReLU: " + err.Error())
	}
	return result
}

// Sigmoid applies the logistic function on GPU.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runUnaryOp(x, "sigmoid", sigmoidShader)
	if err != nil {
		panic("webgpu: Sigmoid: " + err.Error())
	}
	return result
}

// Tanh applies the hyperbolic tangent on GPU.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runUnaryOp(x, "tanh", tanhShader)
	if err != nil {
		panic("webgpu: Tanh: " + err.Error())
	}
	return result
}

// Softmax normalizes the last dimension of a 2D tensor on GPU.
func (b *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runSoftmax(x)
	if err != nil {
		panic("webgpu: Softmax: " + err.Error())
	}
	return result
}

// The convolution, pooling, scalar and reduction kernels have no WGSL
// implementation yet and run on the CPU fallback.

// Conv2D computes a 2D cross-correlation.
func (b *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2D(input, kernel, stride, padding)
}

// Conv2DInputBackward computes the convolution gradient w.r.t. the input.
func (b *Backend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward computes the convolution gradient w.r.t. the kernel.
func (b *Backend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.fallback.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2D applies max pooling over spatial windows.
func (b *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.fallback.MaxPool2D(input, kernelSize, stride)
}

// MaxPool2DArgmax is MaxPool2D that also reports the selected input indices.
func (b *Backend) MaxPool2DArgmax(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int) {
	return b.fallback.MaxPool2DArgmax(input, kernelSize, stride)
}

// MaxPool2DBackward routes grad to the recorded argmax positions.
func (b *Backend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.fallback.MaxPool2DBackward(input, grad, maxIndices)
}

// AddScalar adds s to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return b.fallback.AddScalar(x, s)
}

// MulScalar multiplies every element by s.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return b.fallback.MulScalar(x, s)
}

// Sum reduces all elements to a scalar of shape [1].
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	return b.fallback.Sum(x)
}

// SumDim reduces along a single dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.fallback.SumDim(x, dim, keepDim)
}

// Reshape returns a copy of x with a new shape of equal element count.
func (b *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.fallback.Reshape(x, shape)
}
