// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package main provides the kiln CLI for training and evaluating image
// classifiers.
package main

import (
	"os"

	"github.com/kiln-ml/kiln/cmd/kiln/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
