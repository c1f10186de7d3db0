// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
)

func raw(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.Float32s(), data)
	return r
}

func intRaw(t *testing.T, shape tensor.Shape, data []int32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(r.Int32s(), data)
	return r
}

func TestAddBackward(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{2}, []float32{1, 2})
	y := raw(t, tensor.Shape{2}, []float32{3, 4})

	out := ad.Add(x, y)
	loss := ad.Sum(out)
	grads := ad.Backward(loss)

	assert.Equal(t, []float32{1, 1}, grads[x].Float32s())
	assert.Equal(t, []float32{1, 1}, grads[y].Float32s())
}

func TestMulBackward(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{2}, []float32{2, 3})
	y := raw(t, tensor.Shape{2}, []float32{5, 7})

	loss := ad.Sum(ad.Mul(x, y))
	grads := ad.Backward(loss)

	assert.Equal(t, []float32{5, 7}, grads[x].Float32s())
	assert.Equal(t, []float32{2, 3}, grads[y].Float32s())
}

func TestBroadcastBiasBackward(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := raw(t, tensor.Shape{3}, []float32{10, 20, 30})

	loss := ad.Sum(ad.Add(x, bias))
	grads := ad.Backward(loss)

	// The bias gradient sums over the broadcast batch dimension.
	require.Contains(t, grads, bias)
	assert.True(t, tensor.Shape{3}.Equal(grads[bias].Shape()))
	assert.Equal(t, []float32{2, 2, 2}, grads[bias].Float32s())
}

func TestMatMulBackward(t *testing.T) {
	ad := New(cpu.New())
	a := raw(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := raw(t, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})

	loss := ad.Sum(ad.MatMul(a, b))
	grads := ad.Backward(loss)

	// dSum/dA = ones @ B^T, dSum/dB = A^T @ ones.
	assert.Equal(t, []float32{11, 15, 11, 15}, grads[a].Float32s())
	assert.Equal(t, []float32{4, 4, 6, 6}, grads[b].Float32s())
}

func TestGradientAccumulation(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{2}, []float32{1, 2})

	// x feeds two branches; gradients must sum.
	loss := ad.Sum(ad.Add(ad.MulScalar(x, 2), ad.MulScalar(x, 3)))
	grads := ad.Backward(loss)

	assert.Equal(t, []float32{5, 5}, grads[x].Float32s())
}

func TestMaxPoolRoutesGradientToArgmaxOnly(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 9, 3, 4})

	loss := ad.Sum(ad.MaxPool2D(x, 2, 2))
	grads := ad.Backward(loss)

	assert.Equal(t, []float32{0, 1, 0, 0}, grads[x].Float32s())
}

func TestCrossEntropyLossAndGradient(t *testing.T) {
	ad := New(cpu.New())
	logits := raw(t, tensor.Shape{2, 3}, []float32{2, 1, 0, 0, 3, 0})
	targets := intRaw(t, tensor.Shape{2}, []int32{0, 1})

	loss := ad.CrossEntropy(logits, targets)
	require.True(t, tensor.Shape{1}.Equal(loss.Shape()))
	assert.Greater(t, loss.Float32s()[0], float32(0))

	grads := ad.Backward(loss)
	gd := grads[logits].Float32s()

	// Each row of the gradient sums to zero: (softmax - onehot) / batch.
	assert.InDelta(t, 0, float64(gd[0]+gd[1]+gd[2]), 1e-6)
	assert.InDelta(t, 0, float64(gd[3]+gd[4]+gd[5]), 1e-6)
	// The target class gradient is negative, pushing its logit up.
	assert.Less(t, gd[0], float32(0))
	assert.Less(t, gd[4], float32(0))
}

func TestClearTapeDropsHistory(t *testing.T) {
	ad := New(cpu.New())
	x := raw(t, tensor.Shape{2}, []float32{1, 2})
	ad.Sum(ad.MulScalar(x, 2))
	assert.Equal(t, 2, ad.Tape().NumOps())

	ad.Tape().Clear()
	assert.Equal(t, 0, ad.Tape().NumOps())
	assert.True(t, ad.Tape().IsRecording())
}
