// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/backend/cpu"
)

// tinyDataset builds n single-pixel RGB samples with label i%numClasses and
// pixel value i/10 in every channel.
func tinyDataset(n, numClasses int) *Dataset {
	d := &Dataset{
		Name:     "tiny",
		Classes:  make([]string, numClasses),
		Channels: 3,
		Height:   1,
		Width:    1,
	}
	for i := 0; i < n; i++ {
		v := float32(i) / 10
		d.Images = append(d.Images, v, v, v)
		d.Labels = append(d.Labels, int32(i%numClasses))
	}
	return d
}

func TestValidate(t *testing.T) {
	d := tinyDataset(6, 2)
	require.NoError(t, d.Validate())

	d.Labels[0] = 5
	assert.ErrorContains(t, d.Validate(), "label")

	d.Labels[0] = 0
	d.Images = d.Images[:len(d.Images)-1]
	assert.ErrorContains(t, d.Validate(), "pixel values")
}

func TestSplit(t *testing.T) {
	d := tinyDataset(10, 2)
	head, tail := d.Split(0.3)
	assert.Equal(t, 3, head.Len())
	assert.Equal(t, 7, tail.Len())
	// Order is preserved.
	assert.Equal(t, float32(0), head.Image(0)[0])
	assert.Equal(t, float32(0.3), tail.Image(0)[0])
	require.NoError(t, head.Validate())
	require.NoError(t, tail.Validate())
}

func TestShuffleKeepsImageLabelPairs(t *testing.T) {
	d := tinyDataset(20, 4)
	d.Shuffle(rand.New(rand.NewSource(7)))
	require.NoError(t, d.Validate())
	// Pixel value i/10 encodes the original index, so the pairing must hold.
	for i := 0; i < d.Len(); i++ {
		orig := int(d.Image(i)[0]*10 + 0.5)
		assert.Equal(t, int32(orig%4), d.Labels[i], "sample %d", i)
	}
}

func TestBatch(t *testing.T) {
	d := tinyDataset(6, 3)
	backend := cpu.New()

	images, labels := Batch(d, []int{4, 1}, backend)
	assert.Equal(t, []int{2, 3, 1, 1}, []int(images.Shape()))
	assert.Equal(t, []int{2}, []int(labels.Shape()))
	assert.InDelta(t, 0.4, images.Data()[0], 1e-6)
	assert.InDelta(t, 0.1, images.Data()[3], 1e-6)
	assert.Equal(t, []int32{1, 1}, labels.Data())
}

func TestBatchesCoverDatasetOnce(t *testing.T) {
	d := tinyDataset(10, 2)
	batches := d.Batches(4, rand.New(rand.NewSource(1)))
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 2) // final short batch

	seen := map[int]bool{}
	for _, b := range batches {
		for _, i := range b {
			assert.False(t, seen[i], "index %d appears twice", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestBatchesWithoutShuffleAreOrdered(t *testing.T) {
	d := tinyDataset(5, 2)
	batches := d.Batches(2, nil)
	assert.Equal(t, [][]int{{0, 1}, {2, 3}, {4}}, batches)
}

// cifarRecord builds one binary CIFAR-10 record with every pixel set to v.
func cifarRecord(label byte, v byte) []byte {
	rec := make([]byte, cifarRecordSize)
	rec[0] = label
	for i := 1; i < len(rec); i++ {
		rec[i] = v
	}
	return rec
}

func TestParseCIFAR10(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(cifarRecord(3, 255))
	buf.Write(cifarRecord(9, 51))

	d := newCIFARDataset("test")
	require.NoError(t, ParseCIFAR10(&buf, d))
	require.NoError(t, d.Validate())

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []int32{3, 9}, d.Labels)
	assert.InDelta(t, 1.0, d.Image(0)[0], 1e-6)
	assert.InDelta(t, 0.2, d.Image(1)[0], 1e-6)
}

func TestParseCIFAR10RejectsTruncatedRecord(t *testing.T) {
	d := newCIFARDataset("test")
	err := ParseCIFAR10(bytes.NewReader(cifarRecord(0, 0)[:100]), d)
	assert.ErrorContains(t, err, "truncated")
}

func TestParseCIFAR10RejectsBadLabel(t *testing.T) {
	d := newCIFARDataset("test")
	err := ParseCIFAR10(bytes.NewReader(cifarRecord(10, 0)), d)
	assert.ErrorContains(t, err, "invalid CIFAR-10 label")
}

func TestLoadCIFAR10(t *testing.T) {
	dir := t.TempDir()
	for _, name := range cifarTrainFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), cifarRecord(1, 100), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, cifarTestFile), cifarRecord(2, 200), 0o644))

	train, test, err := LoadCIFAR10(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, train.Len())
	assert.Equal(t, 1, test.Len())
	assert.Equal(t, CIFAR10Classes, train.Classes)
}

// writeCIFARBatches puts a full set of batch files into dir.
func writeCIFARBatches(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range cifarTrainFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), cifarRecord(1, 100), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, cifarTestFile), cifarRecord(2, 200), 0o644))
}

func TestLocateCIFAR10(t *testing.T) {
	t.Run("batch files in dir itself", func(t *testing.T) {
		dir := t.TempDir()
		writeCIFARBatches(t, dir)
		assert.Equal(t, dir, LocateCIFAR10(dir))
	})

	// The archive extracts into a subdirectory, so a data dir that was
	// populated by a download must resolve to it.
	t.Run("batch files in extracted subdirectory", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "cifar-10-batches-bin")
		writeCIFARBatches(t, sub)
		assert.Equal(t, sub, LocateCIFAR10(dir))

		train, test, err := LoadCIFAR10(LocateCIFAR10(dir))
		require.NoError(t, err)
		assert.Equal(t, 5, train.Len())
		assert.Equal(t, 1, test.Len())
	})

	t.Run("missing files fall through to dir", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, dir, LocateCIFAR10(dir))
	})
}

// writePNG writes a size x size image filled with a solid color.
func writePNG(t *testing.T, path string, size int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadImageFolder(t *testing.T) {
	root := t.TempDir()
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	// Train images at 8x8 get downscaled, the test image is already 4x4.
	writePNG(t, filepath.Join(root, "train", "cats", "a.png"), 8, red)
	writePNG(t, filepath.Join(root, "train", "cats", "b.png"), 8, red)
	writePNG(t, filepath.Join(root, "train", "dogs", "a.png"), 8, blue)
	writePNG(t, filepath.Join(root, "test", "dogs", "a.png"), 4, blue)

	folder, err := LoadImageFolder(root, 4)
	require.NoError(t, err)
	require.NotNil(t, folder.Train)
	require.NotNil(t, folder.Test)
	assert.Nil(t, folder.Validation)

	assert.Equal(t, []string{"cats", "dogs"}, folder.Train.Classes)
	assert.Equal(t, 3, folder.Train.Len())
	assert.Equal(t, 1, folder.Test.Len())
	assert.Equal(t, 4, folder.Train.Height)

	// Solid red resizes to solid red: R plane 1, G and B planes 0.
	img := folder.Train.Image(0)
	plane := 4 * 4
	assert.InDelta(t, 1.0, img[0], 1e-2)
	assert.InDelta(t, 0.0, img[plane], 1e-2)
	assert.InDelta(t, 0.0, img[2*plane], 1e-2)

	// Labels follow sorted class order across splits.
	assert.Equal(t, int32(1), folder.Test.Labels[0])
}

func TestLoadImageFolderRejectsUnknownTestClass(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "train", "cats", "a.png"), 4, color.RGBA{A: 255})
	writePNG(t, filepath.Join(root, "train", "dogs", "a.png"), 4, color.RGBA{A: 255})
	writePNG(t, filepath.Join(root, "test", "birds", "a.png"), 4, color.RGBA{A: 255})

	_, err := LoadImageFolder(root, 4)
	assert.ErrorContains(t, err, "not present in train")
}

func TestLoadImageFolderRequiresTrainSplit(t *testing.T) {
	_, err := LoadImageFolder(t.TempDir(), 4)
	assert.Error(t, err)
}
