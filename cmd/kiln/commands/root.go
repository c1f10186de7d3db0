// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package commands implements the kiln CLI subcommands.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the kiln command tree.
func NewRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "kiln",
		Short:         "Train and evaluate convolutional image classifiers",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	c.AddCommand(
		newTrainCmd(),
		newEvalCmd(),
		newVersionCmd(),
	)
	return c
}
