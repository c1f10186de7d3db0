// Copyright 2026 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "kiln ")
	assert.Contains(t, out, Version)
}

func TestTrainRejectsInvalidOptimizer(t *testing.T) {
	_, err := execute("train", "--optimizer", "rmsprop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "optimizer")
}

func TestTrainRejectsInvalidBackend(t *testing.T) {
	_, err := execute("train", "--backend", "tpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestEvalRequiresCheckpointArg(t *testing.T) {
	_, err := execute("eval")
	assert.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute("frobnicate")
	assert.Error(t, err)
}
