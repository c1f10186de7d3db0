// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (c *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary("relu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Sigmoid applies 1/(1+exp(-x)) element-wise.
func (c *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary("sigmoid", x, func(v float32) float32 {
		return float32(1.0 / (1.0 + math.Exp(-float64(v))))
	})
}

// Tanh applies the hyperbolic tangent element-wise.
func (c *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary("tanh", x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

func (c *Backend) unary(op string, x *tensor.RawTensor, f func(v float32) float32) *tensor.RawTensor {
	requireFloat32(op, x)
	out := c.alloc(x.Shape().Clone())
	xd, od := x.Float32s(), out.Float32s()
	for i := range xd {
		od[i] = f(xd[i])
	}
	return out
}

// AddScalar adds s to every element.
func (c *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	sv := float32(s)
	return c.unary("add scalar", x, func(v float32) float32 { return v + sv })
}

// MulScalar multiplies every element by s.
func (c *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	sv := float32(s)
	return c.unary("mul scalar", x, func(v float32) float32 { return v * sv })
}
