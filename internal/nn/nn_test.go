// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
)

func fromSlice(t *testing.T, b *cpu.Backend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, *cpu.Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

func TestLinearForward(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(1))
	layer := NewLinear(3, 2, rng, b)

	// Overwrite the random init with known values.
	copy(layer.weight.Tensor().Data(), []float32{1, 0, 0, 0, 1, 0}) // [2,3]
	copy(layer.bias.Tensor().Data(), []float32{10, 20})

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := layer.Forward(x)

	assert.True(t, tensor.Shape{2, 2}.Equal(out.Shape()))
	assert.Equal(t, []float32{11, 22, 14, 25}, out.Data())
}

func TestLinearRejectsBadInput(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(3, 2, rand.New(rand.NewSource(1)), b)
	x := fromSlice(t, b, []float32{1, 2}, tensor.Shape{1, 2})
	assert.Panics(t, func() { layer.Forward(x) })
}

func TestConv2DForwardShape(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(1))
	layer := NewConv2D(3, 8, 3, 1, 1, rng, b)

	x := tensor.Zeros[float32](tensor.Shape{2, 3, 16, 16}, b)
	out := layer.Forward(x)

	assert.True(t, tensor.Shape{2, 8, 16, 16}.Equal(out.Shape()))
	assert.Equal(t, 16, layer.OutputSize(16))
}

func TestMaxPool2DHalvesSpatialDims(t *testing.T) {
	b := cpu.New()
	pool := NewMaxPool2D(2, 0, b) // stride defaults to kernel size

	x := tensor.Zeros[float32](tensor.Shape{1, 4, 8, 8}, b)
	out := pool.Forward(x)
	assert.True(t, tensor.Shape{1, 4, 4, 4}.Equal(out.Shape()))
}

func TestFlatten(t *testing.T) {
	b := cpu.New()
	f := NewFlatten[*cpu.Backend]()
	x := tensor.Zeros[float32](tensor.Shape{2, 3, 4, 4}, b)
	out := f.Forward(x)
	assert.True(t, tensor.Shape{2, 48}.Equal(out.Shape()))
}

func TestSequentialForwardAndParameters(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(1))
	model := NewSequential[*cpu.Backend](
		NewLinear(4, 8, rng, b),
		NewReLU(b),
		NewLinear(8, 2, rng, b),
	)

	x := tensor.Zeros[float32](tensor.Shape{3, 4}, b)
	out := model.Forward(x)
	assert.True(t, tensor.Shape{3, 2}.Equal(out.Shape()))

	// Two Linear layers contribute weight+bias each.
	assert.Len(t, model.Parameters(), 4)
}

func TestSequentialStateDictRoundTrip(t *testing.T) {
	b := cpu.New()
	src := NewSequential[*cpu.Backend](
		NewLinear(4, 3, rand.New(rand.NewSource(1)), b),
		NewReLU(b),
		NewLinear(3, 2, rand.New(rand.NewSource(2)), b),
	)
	dst := NewSequential[*cpu.Backend](
		NewLinear(4, 3, rand.New(rand.NewSource(3)), b),
		NewReLU(b),
		NewLinear(3, 2, rand.New(rand.NewSource(4)), b),
	)

	state := src.StateDict()
	assert.Contains(t, state, "0.weight")
	assert.Contains(t, state, "2.bias")
	require.NoError(t, dst.LoadStateDict(state))

	x := fromSlice(t, b, []float32{1, -2, 3, 0.5}, tensor.Shape{1, 4})
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}

func TestLoadStateDictRejectsShapeMismatch(t *testing.T) {
	b := cpu.New()
	layer := NewLinear(4, 3, rand.New(rand.NewSource(1)), b)

	bad, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	err = layer.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": bad,
		"bias":   layer.bias.Tensor().Raw(),
	})
	assert.Error(t, err)
}

func TestDropoutTrainingAndEval(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(42))
	drop := NewDropout(0.5, rng, b)

	x := tensor.Zeros[float32](tensor.Shape{1, 1000}, b)
	for i := range x.Data() {
		x.Data()[i] = 1
	}

	out := drop.Forward(x).Data()
	zeros, kept := 0, 0
	for _, v := range out {
		switch v {
		case 0:
			zeros++
		case 2:
			kept++
		default:
			t.Fatalf("unexpected dropout output %v", v)
		}
	}
	// Roughly half dropped, survivors scaled by 1/(1-p).
	assert.InDelta(t, 500, zeros, 100)
	assert.Equal(t, 1000, zeros+kept)

	drop.SetTraining(false)
	same := drop.Forward(x)
	assert.Equal(t, x.Data(), same.Data())
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	b := cpu.New()
	loss := NewCrossEntropyLoss(b)

	logits := tensor.Zeros[float32](tensor.Shape{4, 10}, b)
	targets := tensor.Zeros[int32](tensor.Shape{4}, b)

	got := loss.Forward(logits, targets)
	assert.InDelta(t, math.Log(10), float64(got.Data()[0]), 1e-5)
}

func TestAccuracy(t *testing.T) {
	b := cpu.New()
	logits := fromSlice(t, b, []float32{
		0.9, 0.1,
		0.2, 0.8,
		0.6, 0.4,
	}, tensor.Shape{3, 2})
	targets, err := tensor.FromSlice([]int32{0, 1, 1}, tensor.Shape{3}, b)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, Accuracy(logits, targets), 1e-9)
}
