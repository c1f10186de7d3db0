// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Adam implements the Adam optimizer with bias-corrected first and second
// moment estimates.
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float64
	beta2  float64
	eps    float64
	step   int

	m map[*nn.Parameter[B]][]float64
	v map[*nn.Parameter[B]][]float64
}

// AdamConfig configures the Adam optimizer. Zero values take the usual
// defaults (lr 0.001, beta1 0.9, beta2 0.999, eps 1e-8).
type AdamConfig struct {
	LR    float32
	Beta1 float64
	Beta2 float64
	Eps   float64
}

// NewAdam creates an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Beta1,
		beta2:  config.Beta2,
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float64),
		v:      make(map[*nn.Parameter[B]][]float64),
	}
}

// Step applies one Adam update. Moments are kept in float64 so the running
// averages do not lose precision over long runs.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))

	for _, param := range a.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}
		pd := param.Tensor().Raw().Float32s()
		gd := grad.Float32s()

		m, ok := a.m[param]
		if !ok {
			m = make([]float64, len(pd))
			a.m[param] = m
			a.v[param] = make([]float64, len(pd))
		}
		v := a.v[param]

		lr := float64(a.lr)
		for i := range pd {
			g := float64(gd[i])
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			pd[i] -= float32(lr * mHat / (math.Sqrt(vHat) + a.eps))
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// SetLR changes the learning rate, for schedules.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// StateDict exports the moment estimates, keyed "m.{index}" and "v.{index}",
// plus the step counter under "step". Moments are stored as float32; the
// precision lost against the float64 running averages is well below the
// update noise floor.
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, param := range a.params {
		m, ok := a.m[param]
		if !ok {
			continue
		}
		v := a.v[param]
		for _, moment := range []struct {
			key  string
			data []float64
		}{
			{fmt.Sprintf("m.%d", i), m},
			{fmt.Sprintf("v.%d", i), v},
		} {
			raw, err := tensor.NewRaw(param.Tensor().Shape().Clone(), tensor.Float32, param.Tensor().Raw().Device())
			if err != nil {
				continue
			}
			dst := raw.Float32s()
			for j, val := range moment.data {
				dst[j] = float32(val)
			}
			stateDict[moment.key] = raw
		}
	}
	step, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, tensor.CPU)
	if err == nil {
		step.Int32s()[0] = int32(a.step)
		stateDict["step"] = step
	}
	return stateDict
}

// LoadStateDict restores moment estimates and the step counter exported by
// StateDict. Missing entries stay zero-initialized.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	a.m = make(map[*nn.Parameter[B]][]float64)
	a.v = make(map[*nn.Parameter[B]][]float64)
	for i, param := range a.params {
		mRaw, mOK := stateDict[fmt.Sprintf("m.%d", i)]
		vRaw, vOK := stateDict[fmt.Sprintf("v.%d", i)]
		if !mOK || !vOK {
			continue
		}
		if !mRaw.Shape().Equal(param.Tensor().Shape()) || !vRaw.Shape().Equal(param.Tensor().Shape()) {
			return fmt.Errorf("moment shape mismatch for parameter %d: expected %v, got m %v v %v",
				i, param.Tensor().Shape(), mRaw.Shape(), vRaw.Shape())
		}
		m := make([]float64, mRaw.NumElements())
		for j, val := range mRaw.Float32s() {
			m[j] = float64(val)
		}
		v := make([]float64, vRaw.NumElements())
		for j, val := range vRaw.Float32s() {
			v[j] = float64(val)
		}
		a.m[param] = m
		a.v[param] = v
	}
	if step, ok := stateDict["step"]; ok && step.NumElements() == 1 {
		a.step = int(step.Int32s()[0])
	}
	return nil
}
