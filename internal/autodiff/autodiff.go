// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation as a
// decorator around any tensor backend. The wrapped backend computes forward
// results as usual while every differentiable operation is recorded on a
// gradient tape.
package autodiff

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/autodiff/ops"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// argmaxPooler is the optional backend extension that reports which input
// index won each pooling window. Both bundled backends implement it.
type argmaxPooler interface {
	MaxPool2DArgmax(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int)
}

// Backend wraps an inner backend and records operations on a tape. It
// implements tensor.Backend itself, so models run unchanged on top of it.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New wraps inner with a fresh, recording gradient tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	tape := NewGradientTape()
	tape.StartRecording()
	return &Backend[B]{inner: inner, tape: tape}
}

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Tape returns the gradient tape.
func (b *Backend[B]) Tape() *GradientTape { return b.tape }

// Name returns the inner backend's name with an autodiff marker.
func (b *Backend[B]) Name() string { return b.inner.Name() + "+autodiff" }

// Device returns the inner backend's device.
func (b *Backend[B]) Device() tensor.Device { return b.inner.Device() }

// Backward seeds loss with a gradient of ones and walks the tape, returning
// accumulated gradients keyed by raw tensor.
func (b *Backend[B]) Backward(loss *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	seed, err := tensor.NewRaw(loss.Shape().Clone(), tensor.Float32, b.inner.Device())
	if err != nil {
		panic(fmt.Sprintf("autodiff: backward seed: %v", err))
	}
	sd := seed.Float32s()
	for i := range sd {
		sd[i] = 1
	}
	return b.tape.Backward(loss, seed, b.inner)
}

// Add performs element-wise addition and records it.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.Record(&ops.AddOp{A: x, B: y, Out: out})
	return out
}

// Sub performs element-wise subtraction and records it.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.Record(&ops.SubOp{A: x, B: y, Out: out})
	return out
}

// Mul performs element-wise multiplication and records it.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.Record(&ops.MulOp{A: x, B: y, Out: out})
	return out
}

// Div performs element-wise division and records it.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	b.tape.Record(&ops.DivOp{A: x, B: y, Out: out})
	return out
}

// MatMul multiplies two matrices and records it.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.Record(&ops.MatMulOp{A: x, B: y, Out: out})
	return out
}

// Conv2D convolves input with kernel and records it.
func (b *Backend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(&ops.Conv2DOp{Input: input, Kernel: kernel, Out: out, Stride: stride, Padding: padding})
	return out
}

// Conv2DInputBackward delegates to the inner backend without recording.
func (b *Backend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward delegates to the inner backend without recording.
func (b *Backend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2D pools input and records the op with the argmax indices the
// backward pass needs.
func (b *Backend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	if pooler, ok := any(b.inner).(argmaxPooler); ok {
		out, indices := pooler.MaxPool2DArgmax(input, kernelSize, stride)
		b.tape.Record(&ops.MaxPool2DOp{Input: input, Out: out, MaxIndices: indices})
		return out
	}
	if b.tape.IsRecording() {
		panic(fmt.Sprintf("autodiff: backend %s does not expose pooling argmax indices", b.inner.Name()))
	}
	return b.inner.MaxPool2D(input, kernelSize, stride)
}

// MaxPool2DBackward delegates to the inner backend without recording.
func (b *Backend[B]) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, maxIndices)
}

// ReLU applies the rectifier and records it.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.Record(&ops.ReLUOp{X: x, Out: out})
	return out
}

// Sigmoid applies the logistic function and records it.
func (b *Backend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sigmoid(x)
	b.tape.Record(&ops.SigmoidOp{X: x, Out: out})
	return out
}

// Tanh applies the hyperbolic tangent and records it.
func (b *Backend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Tanh(x)
	b.tape.Record(&ops.TanhOp{X: x, Out: out})
	return out
}

// Softmax normalizes rows and records it.
func (b *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Softmax(x)
	b.tape.Record(&ops.SoftmaxOp{X: x, Out: out})
	return out
}

// AddScalar adds a constant and records it.
func (b *Backend[B]) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.tape.Record(&ops.AddScalarOp{X: x, Out: out})
	return out
}

// MulScalar multiplies by a constant and records it.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.tape.Record(&ops.MulScalarOp{X: x, Out: out, Scalar: s})
	return out
}

// Sum reduces to a scalar and records it.
func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	b.tape.Record(&ops.SumOp{X: x, Out: out})
	return out
}

// SumDim reduces along one dimension and records it.
func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.SumDim(x, dim, keepDim)
	b.tape.Record(&ops.SumDimOp{X: x, Out: out, Dim: dim})
	return out
}

// Reshape changes the shape and records it.
func (b *Backend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	b.tape.Record(&ops.ReshapeOp{X: x, Out: out})
	return out
}

// Transpose swaps the dimensions of a matrix and records it.
func (b *Backend[B]) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Transpose(x)
	b.tape.Record(&ops.TransposeOp{X: x, Out: out})
	return out
}

// CrossEntropy computes the mean softmax cross-entropy loss of logits
// [batch, classes] against Int32 class indices [batch] and records the fused
// op. The softmax is computed once and shared between the loss value and the
// backward pass.
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("autodiff: cross entropy: logits must be 2D, got %v", shape))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("autodiff: cross entropy: targets must be int32, got %s", targets.DType()))
	}
	batch, classes := shape[0], shape[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("autodiff: cross entropy: %d logits rows but %d targets", batch, targets.NumElements()))
	}

	probs := b.inner.Softmax(logits)
	pd := probs.Float32s()
	td := targets.Int32s()

	var total float64
	for i := 0; i < batch; i++ {
		target := int(td[i])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("autodiff: cross entropy: target %d out of range [0, %d)", target, classes))
		}
		p := float64(pd[i*classes+target])
		if p < 1e-12 {
			p = 1e-12
		}
		total += -math.Log(p)
	}

	loss, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, b.inner.Device())
	if err != nil {
		panic(fmt.Sprintf("autodiff: cross entropy: %v", err))
	}
	loss.Float32s()[0] = float32(total / float64(batch))

	b.tape.Record(&ops.CrossEntropyOp{Logits: logits, Targets: targets, Probs: probs, Out: loss})
	return loss
}
