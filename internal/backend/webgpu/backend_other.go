// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

//go:build !windows

// go-webgpu loads wgpu_native through Windows DLL machinery, so the GPU path
// only builds there. Other platforms get a constructor that reports
// unavailability; callers fall back to the CPU backend.
package webgpu

import (
	"errors"

	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend is a placeholder on platforms without WebGPU support. New never
// returns one, so its methods are unreachable.
type Backend struct {
	cpu.Backend
}

// New reports that WebGPU is unavailable on this platform.
func New() (*Backend, error) {
	return nil, errors.New("webgpu: not supported on this platform")
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool { return false }

// Release is a no-op.
func (b *Backend) Release() {}

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns tensor.WebGPU.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }
