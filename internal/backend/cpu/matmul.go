// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// MatMul multiplies two 2D matrices, [M,K] x [K,N] -> [M,N].
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("matmul", a, b)
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 {
		panic(fmt.Sprintf("cpu: matmul: need 2D tensors, got %v x %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("cpu: matmul: inner dims mismatch: %v x %v", as, bs))
	}
	m, k, n := as[0], as[1], bs[1]

	out := c.alloc(tensor.Shape{m, n})
	ad, bd, od := a.Float32s(), b.Float32s(), out.Float32s()

	parallel.For(m, func(i int) {
		arow := ad[i*k : (i+1)*k]
		orow := od[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := arow[p]
			if av == 0 {
				continue
			}
			brow := bd[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				orow[j] += av * brow[j]
			}
		}
	})
	return out
}

// Transpose swaps the two dimensions of a 2D tensor.
func (c *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("transpose", x)
	xs := x.Shape()
	if len(xs) != 2 {
		panic(fmt.Sprintf("cpu: transpose: need 2D tensor, got %v", xs))
	}
	rows, cols := xs[0], xs[1]

	out := c.alloc(tensor.Shape{cols, rows})
	xd, od := x.Float32s(), out.Float32s()
	parallel.For(rows, func(i int) {
		for j := 0; j < cols; j++ {
			od[j*rows+i] = xd[i*cols+j]
		}
	})
	return out
}

// Reshape returns a copy of x with a new shape of equal element count.
func (c *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := x.WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("cpu: reshape: %v", err))
	}
	return out
}
