// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dataset

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// CIFAR-10 binary format: each record is 1 label byte followed by 3072 pixel
// bytes as three 32x32 planes in RGB order.
const (
	cifarImageSize  = 32
	cifarChannels   = 3
	cifarRecordSize = 1 + cifarChannels*cifarImageSize*cifarImageSize

	// CIFAR10URL is the canonical download location of the binary archive.
	CIFAR10URL = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"
)

// CIFAR10Classes are the ten class names in label order.
var CIFAR10Classes = []string{
	"airplane", "automobile", "bird", "cat", "deer",
	"dog", "frog", "horse", "ship", "truck",
}

var cifarTrainFiles = []string{
	"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin",
	"data_batch_4.bin", "data_batch_5.bin",
}

const cifarTestFile = "test_batch.bin"

// ParseCIFAR10 decodes one binary batch stream into an existing dataset,
// appending its samples.
func ParseCIFAR10(r io.Reader, d *Dataset) error {
	record := make([]byte, cifarRecordSize)
	for {
		_, err := io.ReadFull(r, record)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated CIFAR-10 record")
		}
		if err != nil {
			return err
		}

		label := int32(record[0])
		if int(label) >= len(CIFAR10Classes) {
			return fmt.Errorf("invalid CIFAR-10 label %d", label)
		}
		d.Labels = append(d.Labels, label)
		for _, px := range record[1:] {
			d.Images = append(d.Images, float32(px)/255.0)
		}
	}
}

func newCIFARDataset(name string) *Dataset {
	return &Dataset{
		Name:     name,
		Classes:  CIFAR10Classes,
		Channels: cifarChannels,
		Height:   cifarImageSize,
		Width:    cifarImageSize,
	}
}

// LoadCIFAR10 reads the extracted binary batches from dir and returns the
// 50k-sample training set and 10k-sample test set.
func LoadCIFAR10(dir string) (train, test *Dataset, err error) {
	train = newCIFARDataset("cifar10-train")
	for _, name := range cifarTrainFiles {
		if err := parseCIFARFile(filepath.Join(dir, name), train); err != nil {
			return nil, nil, err
		}
	}

	test = newCIFARDataset("cifar10-test")
	if err := parseCIFARFile(filepath.Join(dir, cifarTestFile), test); err != nil {
		return nil, nil, err
	}

	if err := train.Validate(); err != nil {
		return nil, nil, err
	}
	if err := test.Validate(); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func parseCIFARFile(path string, d *Dataset) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CIFAR-10 batch: %w", err)
	}
	defer f.Close()
	if err := ParseCIFAR10(f, d); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// DownloadCIFAR10 fetches and extracts the binary archive into dir, skipping
// the download when all batch files already exist. Returns the directory
// containing the .bin files.
func DownloadCIFAR10(ctx context.Context, dir string) (string, error) {
	target := filepath.Join(dir, "cifar-10-batches-bin")
	if cifarFilesPresent(target) {
		return target, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CIFAR10URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download CIFAR-10: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download CIFAR-10: status %s", resp.Status)
	}

	if err := extractTarGz(resp.Body, dir); err != nil {
		return "", fmt.Errorf("failed to extract CIFAR-10 archive: %w", err)
	}
	if !cifarFilesPresent(target) {
		return "", fmt.Errorf("archive did not contain the expected batch files")
	}
	return target, nil
}

// LocateCIFAR10 resolves the directory holding the binary batch files. It
// accepts either the directory itself or its parent, since the archive
// extracts into a "cifar-10-batches-bin" subdirectory.
func LocateCIFAR10(dir string) string {
	if cifarFilesPresent(dir) {
		return dir
	}
	if sub := filepath.Join(dir, "cifar-10-batches-bin"); cifarFilesPresent(sub) {
		return sub
	}
	return dir
}

func cifarFilesPresent(dir string) bool {
	for _, name := range append(append([]string{}, cifarTrainFiles...), cifarTestFile) {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// extractTarGz unpacks regular files from a gzipped tarball into dir,
// rejecting entries that escape it.
func extractTarGz(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(hdr.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("archive entry escapes target directory: %s", hdr.Name)
		}
		path := filepath.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			//nolint:gosec // archive size is bounded by the known dataset
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
	}
}
