// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// ReLUOp records max(0, x). Gradient passes where the input was positive.
type ReLUOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *ReLUOp) Output() *tensor.RawTensor   { return op.Out }

func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := newLike(op.X)
	gd, xd, od := grad.Float32s(), op.X.Float32s(), outputGrad.Float32s()
	for i := range gd {
		if xd[i] > 0 {
			gd[i] = od[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// SigmoidOp records s = sigmoid(x) and reuses the saved output:
// ds/dx = s * (1 - s).
type SigmoidOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *SigmoidOp) Output() *tensor.RawTensor   { return op.Out }

func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := newLike(op.X)
	gd, sd, od := grad.Float32s(), op.Out.Float32s(), outputGrad.Float32s()
	for i := range gd {
		gd[i] = od[i] * sd[i] * (1 - sd[i])
	}
	return []*tensor.RawTensor{grad}
}

// TanhOp records t = tanh(x). dt/dx = 1 - t^2.
type TanhOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *TanhOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *TanhOp) Output() *tensor.RawTensor   { return op.Out }

func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := newLike(op.X)
	gd, td, od := grad.Float32s(), op.Out.Float32s(), outputGrad.Float32s()
	for i := range gd {
		gd[i] = od[i] * (1 - td[i]*td[i])
	}
	return []*tensor.RawTensor{grad}
}

// SoftmaxOp records row-wise softmax over a 2D tensor. With s the saved
// output, dL/dx[i,j] = s[i,j] * (g[i,j] - sum_k g[i,k]*s[i,k]).
type SoftmaxOp struct {
	X   *tensor.RawTensor
	Out *tensor.RawTensor
}

func (op *SoftmaxOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.X} }
func (op *SoftmaxOp) Output() *tensor.RawTensor   { return op.Out }

func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.X.Shape()
	rows, cols := shape[0], shape[1]

	grad := newLike(op.X)
	gd, sd, od := grad.Float32s(), op.Out.Float32s(), outputGrad.Float32s()
	for i := 0; i < rows; i++ {
		base := i * cols
		var dot float64
		for j := 0; j < cols; j++ {
			dot += float64(od[base+j]) * float64(sd[base+j])
		}
		for j := 0; j < cols; j++ {
			gd[base+j] = sd[base+j] * (od[base+j] - float32(dot))
		}
	}
	return []*tensor.RawTensor{grad}
}
