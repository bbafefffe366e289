// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package profile_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/posio/lib/profile"
)

func TestAddProfileFlags(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.pprof")

	flagset := pflag.NewFlagSet("test", pflag.ContinueOnError)
	stop := profile.AddProfileFlags(flagset, "pprof.")
	require.NoError(t, flagset.Parse([]string{"--pprof.heap=" + heap}))

	assert.Equal(t, heap, flagset.Lookup("pprof.heap").Value.String())
	assert.Equal(t, "", flagset.Lookup("pprof.mutex").Value.String())

	require.NoError(t, stop())
	st, err := os.Stat(heap)
	require.NoError(t, err)
	assert.NotZero(t, st.Size())

	// A second stop is a no-op.
	assert.NoError(t, stop())
}

func TestAddProfileFlagsBadPath(t *testing.T) {
	t.Parallel()
	flagset := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagset.SetOutput(io.Discard)
	_ = profile.AddProfileFlags(flagset, "")
	assert.Error(t, flagset.Parse([]string{"--heap=" + filepath.Join(t.TempDir(), "missing", "heap.pprof")}))
}
