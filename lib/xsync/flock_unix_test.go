// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build unix

package xsync_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"git.lukeshu.com/posio/lib/xsync"
)

func TestFileLock(t *testing.T) {
	t.Parallel()
	filename := filepath.Join(t.TempDir(), "store.lock")

	a, err := xsync.NewFileLock(filename)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()
	b, err := xsync.NewFileLock(filename)
	require.NoError(t, err)
	defer func() { assert.NoError(t, b.Close()) }()

	require.NoError(t, a.Acquire())
	// same FileLock: excluded by the mutex
	assert.True(t, errors.Is(a.TryAcquire(), unix.EWOULDBLOCK))
	// separate open file description: excluded by flock(2)
	assert.True(t, errors.Is(b.TryAcquire(), unix.EWOULDBLOCK))
	a.Release()

	require.NoError(t, b.TryAcquire())
	b.Release()
}
