// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialization implements the .kiln checkpoint format.
//
// Layout:
//
//	magic "KILN" (4 bytes)
//	format version, uint32 little-endian (4 bytes)
//	header size, uint64 little-endian (8 bytes)
//	header JSON
//	zero padding to a 64-byte boundary
//	tensor data, in header order
//	SHA-256 checksum of everything above (32 bytes)
package serialization

import (
	"time"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Format constants.
const (
	MagicBytes    = "KILN"
	FormatVersion = 1
	DataAlignment = 64 // tensor data starts 64-byte aligned
	ChecksumSize  = 32 // SHA-256
)

// Data type names used in headers.
const (
	DTypeFloat32 = "float32"
	DTypeInt32   = "int32"
	DTypeUint8   = "uint8"
)

// Header is the JSON header of a .kiln file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	KilnVersion    string            `json:"kiln_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta records the training state a checkpoint was taken at.
type CheckpointMeta struct {
	Epoch         int     `json:"epoch"`
	Step          int64   `json:"step"`
	Loss          float64 `json:"loss"`
	Accuracy      float64 `json:"accuracy"`
	OptimizerType string  `json:"optimizer_type,omitempty"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`
}

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Int32:
		return DTypeInt32
	case tensor.Uint8:
		return DTypeUint8
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeUint8:
		return tensor.Uint8, true
	default:
		return 0, false
	}
}
