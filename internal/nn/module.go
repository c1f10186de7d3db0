// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn implements neural network building blocks: layers, activations,
// the loss function and the Sequential container. Modules are generic over
// the tensor backend, so the same model runs on CPU or GPU and trains when
// the backend is an autodiff wrapper.
package nn

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Module is the interface every network component implements.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters, including those of
	// nested modules. Parameter-free modules return nil.
	Parameters() []*Parameter[B]
}

// StatefulModule is implemented by modules whose parameters can be exported
// to and restored from a checkpoint.
type StatefulModule interface {
	// StateDict maps parameter names to their raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies matching entries into the module's parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// TrainableModule is implemented by modules that behave differently during
// training and evaluation, such as Dropout.
type TrainableModule interface {
	// SetTraining switches between training and evaluation behavior.
	SetTraining(training bool)
}
