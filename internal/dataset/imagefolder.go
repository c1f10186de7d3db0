// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for folder datasets
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

// ImageFolder is a dataset laid out on disk as
//
//	root/train/<class>/*.png
//	root/test/<class>/*.jpg
//	root/validation/<class>/...
//
// Class names come from the subdirectory names of the train split, sorted, so
// labels are stable across runs. Splits other than train must not introduce
// new classes.
type ImageFolder struct {
	Train      *Dataset
	Test       *Dataset
	Validation *Dataset
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
}

// LoadImageFolder reads the train, test and optional validation splits under
// root, decoding and bilinearly resizing every image to size x size RGB.
func LoadImageFolder(root string, size int) (*ImageFolder, error) {
	if size < 1 {
		return nil, fmt.Errorf("image size must be >= 1, got %d", size)
	}

	classes, err := listClasses(filepath.Join(root, "train"))
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("need at least 2 class directories under %s/train, found %d", root, len(classes))
	}

	folder := &ImageFolder{}
	splits := []struct {
		name     string
		dst      **Dataset
		required bool
	}{
		{"train", &folder.Train, true},
		{"test", &folder.Test, true},
		{"validation", &folder.Validation, false},
	}
	for _, split := range splits {
		dir := filepath.Join(root, split.name)
		if _, err := os.Stat(dir); err != nil {
			if split.required {
				return nil, fmt.Errorf("missing %s split: %w", split.name, err)
			}
			continue
		}
		d, err := loadSplit(dir, split.name, classes, size)
		if err != nil {
			return nil, err
		}
		*split.dst = d
	}
	return folder, nil
}

func listClasses(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func loadSplit(dir, name string, classes []string, size int) (*Dataset, error) {
	d := &Dataset{
		Name:     name,
		Classes:  classes,
		Channels: 3,
		Height:   size,
		Width:    size,
	}
	classIndex := make(map[string]int32, len(classes))
	for i, c := range classes {
		classIndex[c] = int32(i)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label, ok := classIndex[e.Name()]
		if !ok {
			return nil, fmt.Errorf("split %s has class %q not present in train", name, e.Name())
		}
		classDir := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			if err := appendImage(d, filepath.Join(classDir, f.Name()), label, size); err != nil {
				return nil, err
			}
		}
	}

	if d.Len() == 0 {
		return nil, fmt.Errorf("split %s contains no images", name)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// appendImage decodes, resizes and appends one image as CHW float32 planes.
func appendImage(d *Dataset, path string, label int32, size int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(rgba, rgba.Bounds(), src, src.Bounds(), draw.Src, nil)

	// HWC byte rows to CHW float planes.
	plane := size * size
	base := len(d.Images)
	d.Images = append(d.Images, make([]float32, 3*plane)...)
	for y := 0; y < size; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < size; x++ {
			idx := y*size + x
			d.Images[base+idx] = float32(row[x*4]) / 255.0
			d.Images[base+plane+idx] = float32(row[x*4+1]) / 255.0
			d.Images[base+2*plane+idx] = float32(row[x*4+2]) / 255.0
		}
	}
	d.Labels = append(d.Labels, label)
	return nil
}
