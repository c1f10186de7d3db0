// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the public API for kiln's WebGPU compute backend.
//
// The GPU path is only available on platforms where the native wgpu library
// can be loaded; New returns an error elsewhere and callers fall back to the
// CPU backend.
package webgpu

import (
	"github.com/kiln-ml/kiln/internal/backend/webgpu"
)

// Backend is the WebGPU compute backend.
type Backend = webgpu.Backend

// New initializes the GPU device and queue.
func New() (*Backend, error) { return webgpu.New() }

// IsAvailable reports whether a usable GPU adapter is present.
func IsAvailable() bool { return webgpu.IsAvailable() }
