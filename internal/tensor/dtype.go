// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the core tensor types shared by every kiln backend.
package tensor

// DType is the compile-time constraint for supported element types.
//
// Float32 carries activations, weights and gradients; Int32 carries class
// labels; Uint8 carries raw image bytes before normalization.
type DType interface {
	~float32 | ~int32 | ~uint8
}

// DataType is the runtime type tag of a RawTensor.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Int32
	Uint8
)

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Uint8:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns the Go name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case Uint8:
		return "uint8"
	default:
		return "unknown"
	}
}

// typeOf maps a generic element type to its runtime tag.
func typeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	case uint8:
		return Uint8
	default:
		panic("unsupported element type")
	}
}
