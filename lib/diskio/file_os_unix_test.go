// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build unix

package diskio_test

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/xsync"
)

func TestOSFile(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	name := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(name, seekTestData, 0o600))

	file, err := diskio.OpenFile[int64](ctx, name, os.O_RDWR, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, file.Close()) }()

	assert.Equal(t, name, file.Name())
	assert.Equal(t, int64(len(seekTestData)), file.Size())

	buf := make([]byte, 3)
	require.NoError(t, diskio.ReadFullAt[int64](file, buf, 3))
	assert.Equal(t, []byte{7, 8, 9}, buf)

	n, err := file.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = file.ReadAt(buf, 8)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	assert.ErrorIs(t, diskio.ReadFullAt[int64](file, buf, 6), io.ErrUnexpectedEOF)
	assert.ErrorIs(t, diskio.ReadFullAt[int64](file, buf, -1), diskio.ErrNegativeOffset)

	require.NoError(t, diskio.WriteFullAt[int64](file, []byte{44, 44, 44}, 1))
	n, err = file.WriteAt([]byte{99}, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(9), file.Size())

	dat, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 44, 44, 44, 8, 9, 10, 11, 99}, dat)
}

// pread/pwrite don't share a cursor, so concurrent use needs no lock.
func TestOSFileWriteOnly(t *testing.T) {
	t.Parallel()
	name := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(name, seekTestData, 0o600))

	file, err := diskio.OpenOSFile[int64](name, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, file.Close()) }()

	n, err := file.WriteAt([]byte{55, 55}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, diskio.WriteFullAt[int64](file, []byte{66}, 7))

	_, err = file.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, unix.EBADF)

	dat, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 55, 55, 8, 9, 10, 66}, dat)
}

func TestOSFileConcurrent(t *testing.T) {
	t.Parallel()
	name := filepath.Join(t.TempDir(), "data")
	file, err := diskio.OpenOSFile[int64](name, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	defer func() { assert.NoError(t, file.Close()) }()

	const chunk = 64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		off := int64(i * chunk)
		val := byte(i)
		go func() {
			defer wg.Done()
			dat := make([]byte, chunk)
			for j := range dat {
				dat[j] = val
			}
			assert.NoError(t, diskio.WriteFullAt[int64](file, dat, off))
		}()
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		buf := make([]byte, chunk)
		require.NoError(t, diskio.ReadFullAt[int64](file, buf, int64(i*chunk)))
		for _, b := range buf {
			require.Equal(t, byte(i), b)
		}
	}
}

// The seek path on a real file, shared between goroutines with a
// flock(2) lock.
func TestOSFileSeekFileLock(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	dir := t.TempDir()
	name := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(name, seekTestData, 0o600))

	fh, err := os.OpenFile(name, os.O_RDWR, 0)
	require.NoError(t, err)
	defer func() { assert.NoError(t, fh.Close()) }()

	lock, err := xsync.NewFileLock(filepath.Join(dir, "data.lock"))
	require.NoError(t, err)
	defer func() { assert.NoError(t, lock.Close()) }()

	shared := diskio.NewLockedWith[int64](ctx, diskio.NewSeekReadWriter[int64](fh), lock)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 3)
			for j := 0; j < 20; j++ {
				assert.NoError(t, diskio.ReadFullAt[int64](shared, buf, 3))
				assert.Equal(t, []byte{7, 8, 9}, buf)
				assert.NoError(t, diskio.ReadFullAt[int64](shared, buf, 0))
				assert.Equal(t, []byte{4, 5, 6}, buf)
			}
		}()
	}
	wg.Wait()
}
