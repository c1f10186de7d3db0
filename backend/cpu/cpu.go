// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the public API for kiln's pure-Go CPU backend.
package cpu

import (
	"github.com/kiln-ml/kiln/internal/backend/cpu"
)

// Backend is the CPU compute backend.
type Backend = cpu.Backend

// New creates a CPU backend.
func New() *Backend { return cpu.New() }
