// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// fixedPrefixSize is magic + version + header size.
const fixedPrefixSize = 4 + 4 + 8

// File is a parsed .kiln file.
type File struct {
	Header  Header
	tensors map[string]*tensor.RawTensor
}

// Load reads and validates a .kiln file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates the magic, version and checksum of data and decodes every
// tensor into host memory.
func Parse(data []byte) (*File, error) {
	if len(data) < fixedPrefixSize+ChecksumSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooSmall, len(data))
	}

	if string(data[:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, data[:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	payload := data[:len(data)-ChecksumSize]
	var stored [ChecksumSize]byte
	copy(stored[:], data[len(data)-ChecksumSize:])
	if err := ValidateChecksum(ComputeChecksum(payload), stored); err != nil {
		return nil, err
	}

	headerSize := binary.LittleEndian.Uint64(data[8:16])
	headerEnd := uint64(fixedPrefixSize) + headerSize
	if headerEnd > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: header size %d", ErrHeaderTooLarge, headerSize)
	}

	var header Header
	if err := json.Unmarshal(data[fixedPrefixSize:headerEnd], &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	dataStart := (headerEnd + DataAlignment - 1) / DataAlignment * DataAlignment
	section := payload[min(dataStart, uint64(len(payload))):]

	tensors := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		dtype, ok := stringToDtype(meta.DType)
		if !ok {
			return nil, fmt.Errorf("tensor %q: unknown dtype %q", meta.Name, meta.DType)
		}
		end := meta.Offset + meta.Size
		if meta.Offset < 0 || end > int64(len(section)) {
			return nil, fmt.Errorf("%w: tensor %q range [%d, %d)", ErrOutOfBounds, meta.Name, meta.Offset, end)
		}
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, tensor.CPU)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		if int64(raw.ByteSize()) != meta.Size {
			return nil, fmt.Errorf("tensor %q: shape %v needs %d bytes, header says %d",
				meta.Name, meta.Shape, raw.ByteSize(), meta.Size)
		}
		copy(raw.Data(), section[meta.Offset:end])
		tensors[meta.Name] = raw
	}

	return &File{Header: header, tensors: tensors}, nil
}

// StateDict returns all tensors keyed by name.
func (f *File) StateDict() map[string]*tensor.RawTensor { return f.tensors }

// Tensor returns one tensor by name.
func (f *File) Tensor(name string) (*tensor.RawTensor, error) {
	raw, ok := f.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	return raw, nil
}

// TensorNames returns the names in header order.
func (f *File) TensorNames() []string {
	names := make([]string, 0, len(f.Header.Tensors))
	for _, meta := range f.Header.Tensors {
		names = append(names, meta.Name)
	}
	return names
}
