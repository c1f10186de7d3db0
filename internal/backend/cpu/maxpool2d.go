// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

type poolDims struct {
	batch, channels, inH, inW int
	kernel, stride            int
	outH, outW                int
}

func poolGeometry(op string, input *tensor.RawTensor, kernelSize, stride int) poolDims {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("cpu: %s: need 4D input, got %v", op, is))
	}
	if kernelSize < 1 || stride < 1 {
		panic(fmt.Sprintf("cpu: %s: kernelSize and stride must be >= 1, got %d and %d", op, kernelSize, stride))
	}
	d := poolDims{
		batch: is[0], channels: is[1], inH: is[2], inW: is[3],
		kernel: kernelSize, stride: stride,
	}
	d.outH = (d.inH-kernelSize)/stride + 1
	d.outW = (d.inW-kernelSize)/stride + 1
	if d.outH < 1 || d.outW < 1 {
		panic(fmt.Sprintf("cpu: %s: window %d does not fit input %v with stride=%d", op, kernelSize, is, stride))
	}
	return d
}

// MaxPool2D applies max pooling over [N,C,H,W] spatial windows. Ties resolve
// to the first maximum in row-major window order.
func (c *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out, _ := c.maxPool2D(input, kernelSize, stride)
	return out
}

// MaxPool2DArgmax is MaxPool2D that also reports, per output element, the
// flat input index of the selected maximum. The autodiff layer records the
// indices so the backward pass can route gradients.
func (c *Backend) MaxPool2DArgmax(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int) {
	return c.maxPool2D(input, kernelSize, stride)
}

func (c *Backend) maxPool2D(input *tensor.RawTensor, kernelSize, stride int) (*tensor.RawTensor, []int) {
	requireFloat32("maxpool2d", input)
	d := poolGeometry("maxpool2d", input, kernelSize, stride)

	out := c.alloc(tensor.Shape{d.batch, d.channels, d.outH, d.outW})
	od, id := out.Float32s(), input.Float32s()
	indices := make([]int, len(od))

	cols := d.outH * d.outW
	parallel.For2D(d.batch, d.channels, func(n, ch int) {
		planeOff := (n*d.channels + ch) * d.inH * d.inW
		outOff := (n*d.channels + ch) * cols
		for oy := 0; oy < d.outH; oy++ {
			for ox := 0; ox < d.outW; ox++ {
				iy0, ix0 := oy*d.stride, ox*d.stride
				best := id[planeOff+iy0*d.inW+ix0]
				bestIdx := planeOff + iy0*d.inW + ix0
				for ky := 0; ky < d.kernel; ky++ {
					rowOff := planeOff + (iy0+ky)*d.inW
					for kx := 0; kx < d.kernel; kx++ {
						idx := rowOff + ix0 + kx
						if id[idx] > best {
							best = id[idx]
							bestIdx = idx
						}
					}
				}
				od[outOff+oy*d.outW+ox] = best
				indices[outOff+oy*d.outW+ox] = bestIdx
			}
		}
	})
	return out, indices
}

// MaxPool2DBackward scatters grad back to the input positions recorded in
// maxIndices; all other positions receive zero.
func (c *Backend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	requireFloat32("maxpool2d backward", input, grad)
	if grad.NumElements() != len(maxIndices) {
		panic(fmt.Sprintf("cpu: maxpool2d backward: %d gradient elements but %d indices",
			grad.NumElements(), len(maxIndices)))
	}

	out := c.alloc(input.Shape().Clone())
	od, gd := out.Float32s(), grad.Float32s()
	// Sequential on purpose: distinct windows may share a max index when
	// stride < kernelSize, so parallel accumulation would race.
	for i, idx := range maxIndices {
		od[idx] += gd[i]
	}
	return out
}
