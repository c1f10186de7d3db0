// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// quadraticLoss computes sum((w - target)^2) on the autodiff backend, a
// convex problem every optimizer must make progress on.
func quadraticLoss(ad *autodiff.Backend[*cpu.Backend], w, target *tensor.RawTensor) *tensor.RawTensor {
	diff := ad.Sub(w, target)
	return ad.Sum(ad.Mul(diff, diff))
}

func trainQuadratic(t *testing.T, makeOpt func(params []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]) Optimizer) []float32 {
	t.Helper()
	ad := autodiff.New(cpu.New())

	w := tensor.Zeros[float32](tensor.Shape{3}, ad)
	copy(w.Data(), []float32{5, -4, 2})
	param := nn.NewParameter("w", w)

	target, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(target.Float32s(), []float32{1, 1, 1})

	opt := makeOpt([]*nn.Parameter[*autodiff.Backend[*cpu.Backend]]{param})

	losses := make([]float32, 0, 50)
	for i := 0; i < 50; i++ {
		ad.Tape().Clear()
		loss := quadraticLoss(ad, w.Raw(), target)
		losses = append(losses, loss.Float32s()[0])
		grads := ad.Backward(loss)
		opt.Step(grads)
		opt.ZeroGrad()
	}
	return losses
}

func TestSGDReducesQuadraticLoss(t *testing.T) {
	losses := trainQuadratic(t, func(params []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]) Optimizer {
		return NewSGD(params, SGDConfig{LR: 0.05})
	})
	assert.Less(t, losses[len(losses)-1], losses[0]/100)
}

func TestSGDMomentumReducesQuadraticLoss(t *testing.T) {
	losses := trainQuadratic(t, func(params []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]) Optimizer {
		return NewSGD(params, SGDConfig{LR: 0.02, Momentum: 0.9})
	})
	assert.Less(t, losses[len(losses)-1], losses[0]/10)
}

func TestAdamReducesQuadraticLoss(t *testing.T) {
	losses := trainQuadratic(t, func(params []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]) Optimizer {
		return NewAdam(params, AdamConfig{LR: 0.2})
	})
	assert.Less(t, losses[len(losses)-1], losses[0]/10)
}

func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	b := cpu.New()
	layer := nn.NewLinear(2, 2, rand.New(rand.NewSource(1)), b)
	before := append([]float32(nil), layer.Parameters()[0].Tensor().Data()...)

	opt := NewSGD(layer.Parameters(), SGDConfig{LR: 0.1})
	opt.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	assert.Equal(t, before, layer.Parameters()[0].Tensor().Data())
}

func TestSGDStateDictRoundTrip(t *testing.T) {
	ad := autodiff.New(cpu.New())
	w := tensor.Zeros[float32](tensor.Shape{2}, ad)
	copy(w.Data(), []float32{3, -3})
	param := nn.NewParameter("w", w)
	params := []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]{param}

	target, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	src := NewSGD(params, SGDConfig{LR: 0.01, Momentum: 0.9})
	ad.Tape().Clear()
	grads := ad.Backward(quadraticLoss(ad, w.Raw(), target))
	src.Step(grads)

	state := src.StateDict()
	require.Contains(t, state, "velocity.0")

	dst := NewSGD(params, SGDConfig{LR: 0.01, Momentum: 0.9})
	require.NoError(t, dst.LoadStateDict(state))
	assert.Equal(t, state["velocity.0"].Float32s(), dst.StateDict()["velocity.0"].Float32s())
}

func TestAdamStateDictRoundTrip(t *testing.T) {
	ad := autodiff.New(cpu.New())
	w := tensor.Zeros[float32](tensor.Shape{2}, ad)
	copy(w.Data(), []float32{3, -3})
	param := nn.NewParameter("w", w)
	params := []*nn.Parameter[*autodiff.Backend[*cpu.Backend]]{param}

	target, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	src := NewAdam(params, AdamConfig{LR: 0.01})
	for i := 0; i < 3; i++ {
		ad.Tape().Clear()
		grads := ad.Backward(quadraticLoss(ad, w.Raw(), target))
		src.Step(grads)
		src.ZeroGrad()
	}

	state := src.StateDict()
	require.Contains(t, state, "m.0")
	require.Contains(t, state, "v.0")
	require.Contains(t, state, "step")
	assert.Equal(t, int32(3), state["step"].Int32s()[0])

	dst := NewAdam(params, AdamConfig{LR: 0.01})
	require.NoError(t, dst.LoadStateDict(state))

	restored := dst.StateDict()
	assert.Equal(t, state["m.0"].Float32s(), restored["m.0"].Float32s())
	assert.Equal(t, state["v.0"].Float32s(), restored["v.0"].Float32s())
	assert.Equal(t, int32(3), restored["step"].Int32s()[0])
}

func TestAdamLoadStateDictRejectsShapeMismatch(t *testing.T) {
	ad := autodiff.New(cpu.New())
	w := tensor.Zeros[float32](tensor.Shape{2}, ad)
	param := nn.NewParameter("w", w)
	opt := NewAdam([]*nn.Parameter[*autodiff.Backend[*cpu.Backend]]{param}, AdamConfig{})

	bad, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	state := map[string]*tensor.RawTensor{"m.0": bad, "v.0": bad}
	assert.ErrorContains(t, opt.LoadStateDict(state), "shape mismatch")
}
