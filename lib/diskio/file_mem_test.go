// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio_test

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/posio/lib/diskio"
)

func TestMemFile(t *testing.T) {
	t.Parallel()
	file := diskio.NewMemFile[int64]("mem", []byte("hello"))

	buf := make([]byte, 4)
	n, err := file.ReadAt(buf, 3)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "lo", string(buf[:n]))

	n, err = file.ReadAt(buf, 5)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = file.ReadAt(nil, 5)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	_, err = file.ReadAt(buf, -1)
	assert.ErrorIs(t, err, diskio.ErrNegativeOffset)

	// Writing past the end zero-fills the gap.
	require.NoError(t, diskio.WriteFullAt[int64](file, []byte("!"), 7))
	assert.Equal(t, int64(8), file.Size())
	assert.Equal(t, []byte("hello\x00\x00!"), file.Bytes())

	require.NoError(t, file.Truncate(2))
	assert.Equal(t, []byte("he"), file.Bytes())
	require.NoError(t, file.Truncate(4))
	assert.Equal(t, []byte("he\x00\x00"), file.Bytes())
	assert.ErrorIs(t, file.Truncate(-1), diskio.ErrNegativeOffset)
}

func TestMemFileHugeOffset(t *testing.T) {
	t.Parallel()
	file := diskio.NewMemFile[int64]("mem", []byte("hello"))

	var n int
	var err error
	assert.NotPanics(t, func() {
		n, err = file.WriteAt(make([]byte, 10), math.MaxInt64-5)
	})
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, diskio.ErrOffsetTooLarge)

	assert.NotPanics(t, func() {
		err = diskio.WriteFullAt[int64](file, make([]byte, 10), math.MaxInt64-5)
	})
	assert.ErrorIs(t, err, diskio.ErrOffsetTooLarge)

	assert.ErrorIs(t, file.Truncate(math.MaxInt64), diskio.ErrOffsetTooLarge)
	assert.Equal(t, []byte("hello"), file.Bytes())
}
