// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Conv2DInputBackward computes the gradient of a convolution with respect to
// its input. grad is [N,outC,outH,outW]; the result matches input's shape.
func (c *Backend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d input backward", input, kernel, grad)
	d := convGeometry("conv2d input backward", input, kernel, stride, padding)

	out := c.alloc(input.Shape().Clone())
	od, kd, gd := out.Float32s(), kernel.Float32s(), grad.Float32s()

	// Parallel over (batch, input channel): every write below lands in one
	// [inH, inW] plane, so planes never race.
	parallel.For2D(d.batch, d.inC, func(n, ch int) {
		dst := od[(n*d.inC+ch)*d.inH*d.inW:]
		for oc := 0; oc < d.outC; oc++ {
			gPlane := gd[(n*d.outC+oc)*d.outH*d.outW:]
			kPlane := kd[(oc*d.inC+ch)*d.kH*d.kW:]
			for oy := 0; oy < d.outH; oy++ {
				for ox := 0; ox < d.outW; ox++ {
					g := gPlane[oy*d.outW+ox]
					if g == 0 {
						continue
					}
					iyBase := oy*d.stride - d.padding
					ixBase := ox*d.stride - d.padding
					for ky := 0; ky < d.kH; ky++ {
						iy := iyBase + ky
						if iy < 0 || iy >= d.inH {
							continue
						}
						for kx := 0; kx < d.kW; kx++ {
							ix := ixBase + kx
							if ix < 0 || ix >= d.inW {
								continue
							}
							dst[iy*d.inW+ix] += g * kPlane[ky*d.kW+kx]
						}
					}
				}
			}
		}
	})
	return out
}

// Conv2DKernelBackward computes the gradient of a convolution with respect to
// its kernel. The result matches kernel's shape.
func (c *Backend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d kernel backward", input, kernel, grad)
	d := convGeometry("conv2d kernel backward", input, kernel, stride, padding)

	out := c.alloc(kernel.Shape().Clone())
	od, id, gd := out.Float32s(), input.Float32s(), grad.Float32s()

	// Parallel over (output channel, input channel): each pair owns one
	// [kH, kW] slice of the kernel gradient.
	parallel.For2D(d.outC, d.inC, func(oc, ch int) {
		dst := od[(oc*d.inC+ch)*d.kH*d.kW:]
		for n := 0; n < d.batch; n++ {
			inPlane := id[(n*d.inC+ch)*d.inH*d.inW:]
			gPlane := gd[(n*d.outC+oc)*d.outH*d.outW:]
			for oy := 0; oy < d.outH; oy++ {
				for ox := 0; ox < d.outW; ox++ {
					g := gPlane[oy*d.outW+ox]
					if g == 0 {
						continue
					}
					iyBase := oy*d.stride - d.padding
					ixBase := ox*d.stride - d.padding
					for ky := 0; ky < d.kH; ky++ {
						iy := iyBase + ky
						if iy < 0 || iy >= d.inH {
							continue
						}
						for kx := 0; kx < d.kW; kx++ {
							ix := ixBase + kx
							if ix < 0 || ix >= d.inW {
								continue
							}
							dst[ky*d.kW+kx] += g * inPlane[iy*d.inW+ix]
						}
					}
				}
			}
		}
	})
	return out
}
