// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// AddOp records a + b. Gradient flows unchanged to both inputs, reduced over
// any broadcast dimensions.
type AddOp struct {
	A, B *tensor.RawTensor
	Out  *tensor.RawTensor
}

func (op *AddOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.A, op.B} }
func (op *AddOp) Output() *tensor.RawTensor   { return op.Out }

func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceGrad(outputGrad, op.A.Shape(), backend),
		reduceGrad(outputGrad, op.B.Shape(), backend),
	}
}

// SubOp records a - b.
type SubOp struct {
	A, B *tensor.RawTensor
	Out  *tensor.RawTensor
}

func (op *SubOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.A, op.B} }
func (op *SubOp) Output() *tensor.RawTensor   { return op.Out }

func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceGrad(outputGrad, op.A.Shape(), backend),
		reduceGrad(backend.MulScalar(outputGrad, -1), op.B.Shape(), backend),
	}
}

// MulOp records a * b. d(a*b)/da = b, d(a*b)/db = a.
type MulOp struct {
	A, B *tensor.RawTensor
	Out  *tensor.RawTensor
}

func (op *MulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.A, op.B} }
func (op *MulOp) Output() *tensor.RawTensor   { return op.Out }

func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceGrad(backend.Mul(outputGrad, op.B), op.A.Shape(), backend),
		reduceGrad(backend.Mul(outputGrad, op.A), op.B.Shape(), backend),
	}
}

// DivOp records a / b. d(a/b)/da = 1/b, d(a/b)/db = -a/b^2.
type DivOp struct {
	A, B *tensor.RawTensor
	Out  *tensor.RawTensor
}

func (op *DivOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.A, op.B} }
func (op *DivOp) Output() *tensor.RawTensor   { return op.Out }

func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Div(outputGrad, op.B)
	bSq := backend.Mul(op.B, op.B)
	gradB := backend.MulScalar(backend.Div(backend.Mul(outputGrad, op.A), bSq), -1)
	return []*tensor.RawTensor{
		reduceGrad(gradA, op.A.Shape(), backend),
		reduceGrad(gradB, op.B.Shape(), backend),
	}
}

// AddScalarOp records x + s. The scalar is constant, so gradient passes
// through unchanged.
type AddScalarOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *AddScalarOp) Output() *tensor.RawTensor   { return op.Out }

func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad}
}

// MulScalarOp records x * s.
type MulScalarOp struct {
	X      *tensor.RawTensor
	Out    *tensor.RawTensor
	Scalar float64
}

func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *MulScalarOp) Output() *tensor.RawTensor   { return op.Out }

func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.Scalar)}
}
