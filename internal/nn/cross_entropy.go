// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// fusedLossBackend is implemented by the autodiff wrapper, which computes the
// softmax cross-entropy and its gradient as a single fused operation.
type fusedLossBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss computes the mean softmax cross-entropy between logits
// [batch, classes] and Int32 class indices [batch].
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates the loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward returns the scalar loss of shape [1]. On an autodiff backend the
// fused operation is recorded so Backward yields the (softmax - onehot)/batch
// gradient; on a plain backend only the value is computed.
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	if fused, ok := any(c.backend).(fusedLossBackend); ok {
		return tensor.New[float32](fused.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
	}

	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: CrossEntropyLoss: logits must be 2D, got %v", shape))
	}
	batch, classes := shape[0], shape[1]

	probs := c.backend.Softmax(logits.Raw()).Float32s()
	td := targets.Data()
	var total float64
	for i := 0; i < batch; i++ {
		p := float64(probs[i*classes+int(td[i])])
		if p < 1e-12 {
			p = 1e-12
		}
		total += -math.Log(p)
	}

	loss := tensor.Zeros[float32](tensor.Shape{1}, c.backend)
	loss.Data()[0] = float32(total / float64(batch))
	return loss
}

// Accuracy returns the fraction of rows whose argmax matches the target.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: Accuracy: logits must be 2D, got %v", shape))
	}
	batch, classes := shape[0], shape[1]

	ld := logits.Data()
	td := targets.Data()
	correct := 0
	for i := 0; i < batch; i++ {
		row := ld[i*classes : (i+1)*classes]
		best := 0
		for j := 1; j < classes; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		if int32(best) == td[i] {
			correct++
		}
	}
	return float64(correct) / float64(batch)
}
