// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/kiln-ml/kiln/internal/tensor"
)

const kilnVersion = "0.1.0"

// Save writes a state dict to path with a default header.
func Save(path string, stateDict map[string]*tensor.RawTensor) error {
	return SaveWithHeader(path, stateDict, Header{})
}

// SaveWithHeader writes a state dict to path, filling in the format fields of
// header. Tensors are written in sorted name order so files are byte-stable
// for identical state.
func SaveWithHeader(path string, stateDict map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	header.KilnVersion = kilnVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	header.Tensors = make([]TensorMeta, 0, len(names))

	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	buf.Write(headerJSON)

	if padding := (DataAlignment - buf.Len()%DataAlignment) % DataAlignment; padding > 0 {
		buf.Write(make([]byte, padding))
	}

	for _, name := range names {
		buf.Write(stateDict[name].Data())
	}

	checksum := ComputeChecksum(buf.Bytes())
	buf.Write(checksum[:])

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
