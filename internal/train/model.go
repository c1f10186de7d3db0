// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// ConvNetConfig describes the stock image classifier built by NewConvNet.
type ConvNetConfig struct {
	Channels   int
	ImageSize  int
	NumClasses int
	Dropout    float64
}

// NewConvNet builds a two-block CNN for square images:
//
//	conv 3x3 pad 1 -> ReLU -> maxpool 2
//	conv 3x3 pad 1 -> ReLU -> maxpool 2
//	flatten -> linear 128 -> ReLU -> dropout -> linear numClasses
//
// Each pool halves the spatial size, so ImageSize must be divisible by 4.
func NewConvNet[B tensor.Backend](cfg ConvNetConfig, rng *rand.Rand, backend B) (*nn.Sequential[B], error) {
	if cfg.Channels < 1 || cfg.NumClasses < 2 {
		return nil, fmt.Errorf("invalid model config: %d channels, %d classes", cfg.Channels, cfg.NumClasses)
	}
	if cfg.ImageSize < 4 || cfg.ImageSize%4 != 0 {
		return nil, fmt.Errorf("image size %d must be a positive multiple of 4", cfg.ImageSize)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("dropout %g must be in [0, 1)", cfg.Dropout)
	}

	pooled := cfg.ImageSize / 4
	flat := 64 * pooled * pooled

	return nn.NewSequential[B](
		nn.NewConv2D(cfg.Channels, 32, 3, 1, 1, rng, backend),
		nn.NewReLU(backend),
		nn.NewMaxPool2D(2, 2, backend),
		nn.NewConv2D(32, 64, 3, 1, 1, rng, backend),
		nn.NewReLU(backend),
		nn.NewMaxPool2D(2, 2, backend),
		nn.NewFlatten[B](),
		nn.NewLinear(flat, 128, rng, backend),
		nn.NewReLU(backend),
		nn.NewDropout(cfg.Dropout, rng, backend),
		nn.NewLinear(128, cfg.NumClasses, rng, backend),
	), nil
}
