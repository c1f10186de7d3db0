// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It decorates any backend with a gradient tape: every operation run through
// the decorated backend is recorded, and Backward replays the tape in
// reverse to produce gradients.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//
//	loss := model.Forward(x) // operations recorded on the tape
//	grads := backend.Backward(loss.Raw())
//	optimizer.Step(grads)
//	backend.Tape().Clear()
package autodiff

import (
	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend decorates an inner backend with gradient recording.
type Backend[B tensor.Backend] = autodiff.Backend[B]

// GradientTape records operations for the backward pass.
type GradientTape = autodiff.GradientTape

// New wraps inner with a fresh, recording gradient tape.
func New[B tensor.Backend](inner B) *Backend[B] {
	return autodiff.New(inner)
}

// NewGradientTape creates an empty tape that is not recording.
func NewGradientTape() *GradientTape { return autodiff.NewGradientTape() }
