// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialization

import "errors"

// Common errors.
var (
	ErrFileTooSmall       = errors.New("file too small")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds file size")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
	ErrTensorNotFound     = errors.New("tensor not found")
)
