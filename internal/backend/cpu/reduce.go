// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Sum reduces all elements to a scalar of shape [1]. The accumulator is
// float64 so long reductions do not drift.
func (c *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("sum", x)
	var acc float64
	for _, v := range x.Float32s() {
		acc += float64(v)
	}
	out := c.alloc(tensor.Shape{1})
	out.Float32s()[0] = float32(acc)
	return out
}

// SumDim reduces along a single dimension. With keepDim the reduced dimension
// stays as size 1, otherwise it is removed (a full reduction of a 1D tensor
// keeps shape [1]).
func (c *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	requireFloat32("sum dim", x)
	xs := x.Shape()
	if dim < 0 || dim >= len(xs) {
		panic(fmt.Sprintf("cpu: sum dim: dim %d out of range for shape %v", dim, xs))
	}

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= xs[d]
	}
	reduce := xs[dim]
	inner := 1
	for d := dim + 1; d < len(xs); d++ {
		inner *= xs[d]
	}

	outShape := make(tensor.Shape, 0, len(xs))
	for d, s := range xs {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	out := c.alloc(outShape)
	xd, od := x.Float32s(), out.Float32s()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			var acc float64
			base := o*reduce*inner + i
			for r := 0; r < reduce; r++ {
				acc += float64(xd[base+r*inner])
			}
			od[o*inner+i] = float32(acc)
		}
	}
	return out
}

// Softmax normalizes the last dimension of a 2D tensor into a probability
// distribution, with the usual max subtraction for stability.
func (c *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("softmax", x)
	xs := x.Shape()
	if len(xs) != 2 {
		panic(fmt.Sprintf("cpu: softmax: need 2D tensor, got %v", xs))
	}
	rows, cols := xs[0], xs[1]

	out := c.alloc(xs.Clone())
	xd, od := x.Float32s(), out.Float32s()
	for i := 0; i < rows; i++ {
		row := xd[i*cols : (i+1)*cols]
		orow := od[i*cols : (i+1)*cols]

		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for j, v := range row {
			e := math.Exp(float64(v - maxV))
			orow[j] = float32(e)
			sum += e
		}
		inv := float32(1.0 / sum)
		for j := range orow {
			orow[j] *= inv
		}
	}
	return out
}
