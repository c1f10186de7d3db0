// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// MatMulOp records C = A @ B.
// dC/dA = grad @ B^T, dC/dB = A^T @ grad.
type MatMulOp struct {
	A, B *tensor.RawTensor
	Out  *tensor.RawTensor
}

func (op *MatMulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.A, op.B} }
func (op *MatMulOp) Output() *tensor.RawTensor   { return op.Out }

func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.MatMul(outputGrad, backend.Transpose(op.B)),
		backend.MatMul(backend.Transpose(op.A), outputGrad),
	}
}

// TransposeOp records X^T. The gradient transposes back.
type TransposeOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *TransposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *TransposeOp) Output() *tensor.RawTensor   { return op.Out }

func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad)}
}

// ReshapeOp records a shape change. The gradient reshapes back to the input
// shape.
type ReshapeOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *ReshapeOp) Output() *tensor.RawTensor   { return op.Out }

func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.X.Shape())}
}

// SumOp records a full reduction to shape [1]. The gradient broadcasts the
// scalar back over the input.
type SumOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *SumOp) Output() *tensor.RawTensor   { return op.Out }

func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	g := outputGrad.Float32s()[0]
	grad := newLike(op.X)
	gd := grad.Float32s()
	for i := range gd {
		gd[i] = g
	}
	return []*tensor.RawTensor{grad}
}

// SumDimOp records a reduction along one dimension. The gradient repeats
// along the reduced dimension.
type SumDimOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
	Dim int
}

func (op *SumDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *SumDimOp) Output() *tensor.RawTensor   { return op.Out }

func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	xs := op.X.Shape()
	outer := 1
	for d := 0; d < op.Dim; d++ {
		outer *= xs[d]
	}
	reduce := xs[op.Dim]
	inner := 1
	for d := op.Dim + 1; d < len(xs); d++ {
		inner *= xs[d]
	}

	grad := newLike(op.X)
	gd, od := grad.Float32s(), outputGrad.Float32s()
	for o := 0; o < outer; o++ {
		for r := 0; r < reduce; r++ {
			base := o*reduce*inner + r*inner
			src := o * inner
			for i := 0; i < inner; i++ {
				gd[base+i] = od[src+i]
			}
		}
	}
	return []*tensor.RawTensor{grad}
}
