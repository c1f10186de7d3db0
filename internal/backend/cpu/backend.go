// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend implements tensor.Backend on the host CPU.
type Backend struct{}

// New creates a CPU backend.
func New() *Backend { return &Backend{} }

// Name returns the backend name.
func (c *Backend) Name() string { return "CPU" }

// Device returns tensor.CPU.
func (c *Backend) Device() tensor.Device { return tensor.CPU }

// alloc creates a Float32 result tensor or panics; shape comes from already
// validated inputs.
func (c *Backend) alloc(shape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		panic(fmt.Sprintf("cpu: alloc: %v", err))
	}
	return out
}

func requireFloat32(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic(fmt.Sprintf("cpu: %s: dtype %s not supported (float32 only)", op, t.DType()))
		}
	}
}

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

func (c *Backend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a, b)

	outShape, expand, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("cpu: %s: %v", op, err))
	}
	out := c.alloc(outShape)

	ad, bd, od := a.Float32s(), b.Float32s(), out.Float32s()
	if !expand {
		for i := range od {
			od[i] = f(ad[i], bd[i])
		}
		return out
	}

	as := broadcastStrides(a.Shape(), outShape)
	bs := broadcastStrides(b.Shape(), outShape)
	outStrides := outShape.Strides()
	for i := range od {
		ai, bi := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			idx := rem / outStrides[d]
			rem %= outStrides[d]
			ai += idx * as[d]
			bi += idx * bs[d]
		}
		od[i] = f(ad[ai], bd[bi])
	}
	return out
}

// broadcastStrides returns strides for indexing src as if it had outShape:
// src dimensions of size 1 (or missing leading dimensions) get stride 0.
func broadcastStrides(src, out tensor.Shape) []int {
	srcStrides := src.Strides()
	strides := make([]int, len(out))
	offset := len(out) - len(src)
	for d := range out {
		j := d - offset
		if j < 0 || src[j] == 1 {
			strides[d] = 0
		} else {
			strides[d] = srcStrides[j]
		}
	}
	return strides
}
