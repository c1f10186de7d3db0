// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// CrossEntropyOp records the fused softmax cross-entropy loss over a batch.
// Logits are [batch, classes], targets are Int32 class indices [batch], the
// output is the mean loss of shape [1].
//
// The fused gradient is (softmax - onehot) / batch, which avoids the
// ill-conditioned softmax Jacobian. Targets are indices, not a differentiable
// input, so only the logits receive a gradient.
type CrossEntropyOp struct {
	Logits  *tensor.RawTensor
	Targets *tensor.RawTensor
	Probs   *tensor.RawTensor
	Out     *tensor.RawTensor
}

func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.Logits} }
func (op *CrossEntropyOp) Output() *tensor.RawTensor   { return op.Out }

func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.Logits.Shape()
	batch, classes := shape[0], shape[1]
	g := outputGrad.Float32s()[0]
	scale := g / float32(batch)

	grad := newLike(op.Logits)
	gd, pd := grad.Float32s(), op.Probs.Float32s()
	td := op.Targets.Int32s()
	for i := 0; i < batch; i++ {
		base := i * classes
		target := int(td[i])
		for j := 0; j < classes; j++ {
			p := pd[base+j]
			if j == target {
				p -= 1
			}
			gd[base+j] = p * scale
		}
	}
	return []*tensor.RawTensor{grad}
}
