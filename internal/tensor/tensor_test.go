// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend satisfies the Backend device/name surface for creation tests.
// Compute methods are never exercised here.
type stubBackend struct{ Backend }

func (stubBackend) Device() Device { return CPU }
func (stubBackend) Name() string   { return "stub" }

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Int32, 4},
		{Uint8, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, tt.dtype.Size(), tt.dtype.String())
	}
}

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 6, Shape{2, 3}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShapeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.Strides())
	assert.Equal(t, []int{1}, Shape{5}.Strides())
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{2, 3}.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1}.Validate())
}

func TestBroadcast(t *testing.T) {
	tests := []struct {
		a, b, want Shape
		expand     bool
		fails      bool
	}{
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false, false},
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{5}, Shape{3, 5}, Shape{3, 5}, true, false},
		{Shape{2, 3, 4, 5}, Shape{1, 3, 1, 1}, Shape{2, 3, 4, 5}, true, false},
		{Shape{3, 4}, Shape{3, 5}, nil, false, true},
	}
	for _, tt := range tests {
		got, expand, err := Broadcast(tt.a, tt.b)
		if tt.fails {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "%v x %v", tt.a, tt.b)
		assert.Equal(t, tt.expand, expand)
	}
}

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32, CPU)
	require.NoError(t, err)
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.Len(t, raw.Float32s(), 6)

	_, err = NewRaw(Shape{0}, Float32, CPU)
	assert.Error(t, err)
}

func TestRawTensorTypedViews(t *testing.T) {
	raw, err := NewRaw(Shape{4}, Int32, CPU)
	require.NoError(t, err)
	raw.Int32s()[2] = 7
	assert.Equal(t, int32(7), raw.Int32s()[2])
	assert.Panics(t, func() { raw.Float32s() })
}

func TestRawTensorClone(t *testing.T) {
	raw, err := NewRaw(Shape{3}, Float32, CPU)
	require.NoError(t, err)
	raw.Float32s()[0] = 1

	dup := raw.Clone()
	dup.Float32s()[0] = 9
	assert.Equal(t, float32(1), raw.Float32s()[0], "clone must not alias")
}

func TestFromSlice(t *testing.T) {
	b := stubBackend{}
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, b)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))

	_, err = FromSlice([]float32{1, 2}, Shape{3}, b)
	assert.Error(t, err)
}

func TestAtSet(t *testing.T) {
	b := stubBackend{}
	x := Zeros[float32](Shape{2, 2}, b)
	x.Set(3.5, 1, 0)
	assert.Equal(t, float32(3.5), x.At(1, 0))
	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestItem(t *testing.T) {
	b := stubBackend{}
	x := Full[float32](Shape{1}, 2.5, b)
	assert.Equal(t, float32(2.5), x.Item())

	y := Zeros[float32](Shape{2}, b)
	assert.Panics(t, func() { y.Item() })
}

func TestOnesFull(t *testing.T) {
	b := stubBackend{}
	assert.Equal(t, []int32{1, 1, 1}, Ones[int32](Shape{3}, b).Data())
	assert.Equal(t, []uint8{9, 9}, Full[uint8](Shape{2}, 9, b).Data())
}

func TestRandnMoments(t *testing.T) {
	b := stubBackend{}
	rng := rand.New(rand.NewSource(1))
	x := Randn(Shape{10000}, rng, b)

	var sum, sumSq float64
	for _, v := range x.Data() {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	n := float64(x.NumElements())
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.InDelta(t, 0.0, mean, 0.05)
	assert.InDelta(t, 1.0, math.Sqrt(variance), 0.05)
}
