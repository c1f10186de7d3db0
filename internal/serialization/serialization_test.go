// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package serialization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/tensor"
)

func testStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	weight, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(weight.Float32s(), []float32{1, 2, 3, 4, 5, 6})

	labels, err := tensor.NewRaw(tensor.Shape{4}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(labels.Int32s(), []int32{7, 8, 9, 10})

	return map[string]*tensor.RawTensor{
		"0.weight": weight,
		"labels":   labels,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	state := testStateDict(t)

	header := Header{
		ModelType: "Sequential",
		CheckpointMeta: &CheckpointMeta{
			Epoch:         3,
			Step:          1200,
			Loss:          0.42,
			Accuracy:      0.87,
			OptimizerType: "SGD",
		},
	}
	require.NoError(t, SaveWithHeader(path, state, header))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, f.Header.FormatVersion)
	assert.Equal(t, "Sequential", f.Header.ModelType)
	require.NotNil(t, f.Header.CheckpointMeta)
	assert.Equal(t, 3, f.Header.CheckpointMeta.Epoch)
	assert.InDelta(t, 0.42, f.Header.CheckpointMeta.Loss, 1e-9)

	weight, err := f.Tensor("0.weight")
	require.NoError(t, err)
	assert.True(t, tensor.Shape{2, 3}.Equal(weight.Shape()))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, weight.Float32s())

	labels, err := f.Tensor("labels")
	require.NoError(t, err)
	assert.Equal(t, tensor.Int32, labels.DType())
	assert.Equal(t, []int32{7, 8, 9, 10}, labels.Int32s())

	assert.ElementsMatch(t, []string{"0.weight", "labels"}, f.TensorNames())
}

func TestLoadRejectsCorruptedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	require.NoError(t, Save(path, testStateDict(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-ChecksumSize-1] ^= 0xFF // flip a data byte, keep checksum
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOPE this is not a checkpoint file at all, padding padding"))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	_, err := Parse([]byte("KILN"))
	assert.ErrorIs(t, err, ErrFileTooSmall)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	require.NoError(t, Save(path, testStateDict(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[4] = 0xFF // bump the version field
	_, err = Parse(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestTensorNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	require.NoError(t, Save(path, testStateDict(t)))

	f, err := Load(path)
	require.NoError(t, err)
	_, err = f.Tensor("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	state := testStateDict(t)
	header := Header{ModelType: "Sequential"}
	// Pin the timestamp so the two files are byte-identical.
	header.CreatedAt = header.CreatedAt.AddDate(2026, 1, 1)

	pathA := filepath.Join(dir, "a.kiln")
	pathB := filepath.Join(dir, "b.kiln")
	require.NoError(t, SaveWithHeader(pathA, state, header))
	require.NoError(t, SaveWithHeader(pathB, state, header))

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
