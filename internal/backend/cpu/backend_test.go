// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/tensor"
)

func raw(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.Float32s(), data)
	return r
}

func TestElementwise(t *testing.T) {
	c := New()
	a := raw(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := raw(t, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})

	assert.Equal(t, []float32{11, 22, 33, 44}, c.Add(a, b).Float32s())
	assert.Equal(t, []float32{-9, -18, -27, -36}, c.Sub(a, b).Float32s())
	assert.Equal(t, []float32{10, 40, 90, 160}, c.Mul(a, b).Float32s())
	assert.Equal(t, []float32{0.1, 0.1, 0.1, 0.1}, c.Div(a, b).Float32s())
}

func TestAddBroadcastBias(t *testing.T) {
	c := New()
	// [2,3,1,1] feature map plus per-channel bias [1,3,1,1].
	x := raw(t, tensor.Shape{2, 3, 1, 1}, []float32{0, 0, 0, 0, 0, 0})
	bias := raw(t, tensor.Shape{1, 3, 1, 1}, []float32{1, 2, 3})

	got := c.Add(x, bias)
	assert.True(t, tensor.Shape{2, 3, 1, 1}.Equal(got.Shape()))
	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3}, got.Float32s())
}

func TestBroadcastRowVector(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{2, 3}, []float32{1, 1, 1, 2, 2, 2})
	v := raw(t, tensor.Shape{3}, []float32{10, 20, 30})
	assert.Equal(t, []float32{11, 21, 31, 12, 22, 32}, c.Add(x, v).Float32s())
}

func TestMatMul(t *testing.T) {
	c := New()
	a := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := raw(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	got := c.MatMul(a, b)
	assert.True(t, tensor.Shape{2, 2}.Equal(got.Shape()))
	assert.Equal(t, []float32{58, 64, 139, 154}, got.Float32s())

	assert.Panics(t, func() { c.MatMul(a, a) })
}

func TestTranspose(t *testing.T) {
	c := New()
	a := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	got := c.Transpose(a)
	assert.True(t, tensor.Shape{3, 2}.Equal(got.Shape()))
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, got.Float32s())
}

func TestReshape(t *testing.T) {
	c := New()
	a := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	got := c.Reshape(a, tensor.Shape{3, 2})
	assert.True(t, tensor.Shape{3, 2}.Equal(got.Shape()))
	assert.Equal(t, a.Float32s(), got.Float32s())
	assert.Panics(t, func() { c.Reshape(a, tensor.Shape{4}) })
}

func TestConv2DKnownValues(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 3, 3}, []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	kernel := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{
		1, 0,
		0, 1,
	})

	got := c.Conv2D(input, kernel, 1, 0)
	require.True(t, tensor.Shape{1, 1, 2, 2}.Equal(got.Shape()))
	assert.Equal(t, []float32{6, 8, 12, 14}, got.Float32s())
}

func TestConv2DPaddingPreservesSize(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 4, 4}, make([]float32, 16))
	for i := range input.Float32s() {
		input.Float32s()[i] = float32(i)
	}
	// 3x3 identity kernel (center 1) with padding 1 reproduces the input.
	kernel := raw(t, tensor.Shape{1, 1, 3, 3}, []float32{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	})

	got := c.Conv2D(input, kernel, 1, 1)
	require.True(t, input.Shape().Equal(got.Shape()))
	assert.Equal(t, input.Float32s(), got.Float32s())
}

func TestConv2DMultiChannel(t *testing.T) {
	c := New()
	// Two input channels, summed by a kernel of ones.
	input := raw(t, tensor.Shape{1, 2, 2, 2}, []float32{
		1, 2, 3, 4, // channel 0
		10, 20, 30, 40, // channel 1
	})
	kernel := raw(t, tensor.Shape{1, 2, 2, 2}, []float32{
		1, 1, 1, 1,
		1, 1, 1, 1,
	})

	got := c.Conv2D(input, kernel, 1, 0)
	require.True(t, tensor.Shape{1, 1, 1, 1}.Equal(got.Shape()))
	assert.Equal(t, float32(110), got.Float32s()[0])
}

func TestConv2DInputBackward(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{0, 0, 0, 0})
	kernel := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
	grad := raw(t, tensor.Shape{1, 1, 1, 1}, []float32{1})

	got := c.Conv2DInputBackward(input, kernel, grad, 1, 0)
	require.True(t, input.Shape().Equal(got.Shape()))
	// Single output position: input gradient equals the kernel.
	assert.Equal(t, []float32{1, 2, 3, 4}, got.Float32s())
}

func TestConv2DKernelBackward(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
	kernel := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{0, 0, 0, 0})
	grad := raw(t, tensor.Shape{1, 1, 1, 1}, []float32{2})

	got := c.Conv2DKernelBackward(input, kernel, grad, 1, 0)
	require.True(t, kernel.Shape().Equal(got.Shape()))
	// Single output position: kernel gradient equals grad * input.
	assert.Equal(t, []float32{2, 4, 6, 8}, got.Float32s())
}

func TestMaxPool2D(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 4, 4}, []float32{
		1, 3, 2, 4,
		5, 7, 6, 8,
		9, 11, 10, 12,
		13, 15, 14, 16,
	})

	got, indices := c.MaxPool2DArgmax(input, 2, 2)
	require.True(t, tensor.Shape{1, 1, 2, 2}.Equal(got.Shape()))
	assert.Equal(t, []float32{7, 8, 15, 16}, got.Float32s())
	assert.Equal(t, []int{5, 7, 13, 15}, indices)

	back := c.MaxPool2DBackward(input, got, indices)
	require.True(t, input.Shape().Equal(back.Shape()))
	want := []float32{
		0, 0, 0, 0,
		0, 7, 0, 8,
		0, 0, 0, 0,
		0, 15, 0, 16,
	}
	assert.Equal(t, want, back.Float32s())
}

func TestMaxPool2DTieBreaksFirst(t *testing.T) {
	c := New()
	input := raw(t, tensor.Shape{1, 1, 2, 2}, []float32{5, 5, 5, 5})
	_, indices := c.MaxPool2DArgmax(input, 2, 2)
	assert.Equal(t, []int{0}, indices)
}

func TestActivations(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{4}, []float32{-2, -0.5, 0, 3})

	assert.Equal(t, []float32{0, 0, 0, 3}, c.ReLU(x).Float32s())

	sig := c.Sigmoid(x).Float32s()
	assert.InDelta(t, 0.1192, sig[0], 1e-4)
	assert.InDelta(t, 0.5, sig[2], 1e-6)

	th := c.Tanh(x).Float32s()
	assert.InDelta(t, -0.9640, th[0], 1e-4)
	assert.InDelta(t, 0.0, th[2], 1e-6)
}

func TestScalarOps(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{3}, []float32{1, 2, 3})
	assert.Equal(t, []float32{1.5, 2.5, 3.5}, c.AddScalar(x, 0.5).Float32s())
	assert.Equal(t, []float32{2, 4, 6}, c.MulScalar(x, 2).Float32s())
}

func TestSum(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	got := c.Sum(x)
	assert.True(t, tensor.Shape{1}.Equal(got.Shape()))
	assert.Equal(t, float32(21), got.Float32s()[0])
}

func TestSumDim(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	rows := c.SumDim(x, 1, false)
	assert.True(t, tensor.Shape{2}.Equal(rows.Shape()))
	assert.Equal(t, []float32{6, 15}, rows.Float32s())

	cols := c.SumDim(x, 0, true)
	assert.True(t, tensor.Shape{1, 3}.Equal(cols.Shape()))
	assert.Equal(t, []float32{5, 7, 9}, cols.Float32s())

	assert.Panics(t, func() { c.SumDim(x, 2, false) })
}

func TestSoftmax(t *testing.T) {
	c := New()
	x := raw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 1000, 1000, 1000})

	got := c.Softmax(x).Float32s()
	// Row sums are 1 even with large logits.
	assert.InDelta(t, 1.0, float64(got[0]+got[1]+got[2]), 1e-5)
	assert.InDelta(t, 1.0/3.0, float64(got[3]), 1e-5)
	assert.Greater(t, got[2], got[1])
	assert.Greater(t, got[1], got[0])
}
