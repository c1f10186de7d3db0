// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// convDims holds the geometry shared by the forward and backward kernels.
type convDims struct {
	batch, inC, inH, inW   int
	outC, kH, kW           int
	outH, outW             int
	stride, padding        int
}

func convGeometry(op string, input, kernel *tensor.RawTensor, stride, padding int) convDims {
	is, ks := input.Shape(), kernel.Shape()
	if len(is) != 4 || len(ks) != 4 {
		panic(fmt.Sprintf("cpu: %s: need 4D input and kernel, got %v and %v", op, is, ks))
	}
	if is[1] != ks[1] {
		panic(fmt.Sprintf("cpu: %s: channel mismatch: input %v, kernel %v", op, is, ks))
	}
	if stride < 1 {
		panic(fmt.Sprintf("cpu: %s: stride must be >= 1, got %d", op, stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("cpu: %s: padding must be >= 0, got %d", op, padding))
	}
	d := convDims{
		batch: is[0], inC: is[1], inH: is[2], inW: is[3],
		outC: ks[0], kH: ks[2], kW: ks[3],
		stride: stride, padding: padding,
	}
	d.outH = (d.inH+2*padding-d.kH)/stride + 1
	d.outW = (d.inW+2*padding-d.kW)/stride + 1
	if d.outH < 1 || d.outW < 1 {
		panic(fmt.Sprintf("cpu: %s: kernel %v does not fit input %v with stride=%d padding=%d",
			op, ks, is, stride, padding))
	}
	return d
}

// Conv2D computes a 2D cross-correlation via im2col followed by a matrix
// multiply. Input is [N,C,H,W], kernel is [outC,C,kH,kW], output is
// [N,outC,outH,outW].
func (c *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d", input, kernel)
	d := convGeometry("conv2d", input, kernel, stride, padding)

	patch := d.inC * d.kH * d.kW
	cols := d.outH * d.outW

	// im2col: each output position becomes one column of a [patch, N*cols]
	// matrix, so the convolution collapses into kernelMat x colMat.
	colMat := c.alloc(tensor.Shape{patch, d.batch * cols})
	cd := colMat.Float32s()
	id := input.Float32s()

	parallel.For2D(d.batch, cols, func(n, pos int) {
		oy, ox := pos/d.outW, pos%d.outW
		col := n*cols + pos
		iyBase := oy*d.stride - d.padding
		ixBase := ox*d.stride - d.padding
		for ch := 0; ch < d.inC; ch++ {
			inPlane := id[(n*d.inC+ch)*d.inH*d.inW:]
			rowBase := ch * d.kH * d.kW
			for ky := 0; ky < d.kH; ky++ {
				iy := iyBase + ky
				for kx := 0; kx < d.kW; kx++ {
					ix := ixBase + kx
					var v float32
					if iy >= 0 && iy < d.inH && ix >= 0 && ix < d.inW {
						v = inPlane[iy*d.inW+ix]
					}
					cd[(rowBase+ky*d.kW+kx)*d.batch*cols+col] = v
				}
			}
		}
	})

	kernelMat, err := kernel.WithShape(tensor.Shape{d.outC, patch})
	if err != nil {
		panic(fmt.Sprintf("cpu: conv2d: %v", err))
	}
	prod := c.MatMul(kernelMat, colMat) // [outC, N*cols]

	// Scatter [outC, N*cols] back into [N, outC, outH, outW].
	out := c.alloc(tensor.Shape{d.batch, d.outC, d.outH, d.outW})
	od, pd := out.Float32s(), prod.Float32s()
	parallel.For2D(d.batch, d.outC, func(n, oc int) {
		dst := od[(n*d.outC+oc)*cols:]
		src := pd[oc*d.batch*cols+n*cols:]
		copy(dst[:cols], src[:cols])
	})
	return out
}
