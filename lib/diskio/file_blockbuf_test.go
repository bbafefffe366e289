// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio_test

import (
	"errors"
	"io"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/posio/lib/diskio"
)

func TestBufferedFileWriteBack(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	mem := diskio.NewMemFile[int64]("mem", []byte("0123456789"))
	bf := diskio.NewBufferedFile[int64](ctx, mem, 4, 2)

	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("ab"), 3))
	// Not yet written back.
	assert.Equal(t, "0123456789", string(mem.Bytes()))

	buf := make([]byte, 4)
	require.NoError(t, diskio.ReadFullAt[int64](bf, buf, 2))
	assert.Equal(t, "2ab5", string(buf))

	require.NoError(t, bf.Flush())
	assert.Equal(t, "012ab56789", string(mem.Bytes()))
}

func TestBufferedFileEvict(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	mem := diskio.NewMemFile[int64]("mem", make([]byte, 16))
	bf := diskio.NewBufferedFile[int64](ctx, mem, 4, 1)

	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("A"), 0))
	// Touching another block evicts the first, writing it back.
	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("B"), 4))
	assert.Equal(t, byte('A'), mem.Bytes()[0])
	assert.Equal(t, byte(0), mem.Bytes()[4])

	require.NoError(t, bf.Close())
	assert.Equal(t, byte('B'), mem.Bytes()[4])
}

func TestBufferedFileCloseDropsCache(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	mem := diskio.NewMemFile[int64]("mem", []byte("abcdefgh"))
	bf := diskio.NewBufferedFile[int64](ctx, mem, 4, 2)

	buf := make([]byte, 2)
	require.NoError(t, diskio.ReadFullAt[int64](bf, buf, 0))
	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("X"), 5))
	require.NoError(t, bf.Close())
	assert.Equal(t, "abcdeXgh", string(mem.Bytes()))

	// Nothing stays cached past Close; a read goes back to the
	// (in-memory, still usable) inner file.
	require.NoError(t, diskio.WriteFullAt[int64](mem, []byte("YZ"), 0))
	require.NoError(t, diskio.ReadFullAt[int64](bf, buf, 0))
	assert.Equal(t, "YZ", string(buf))
}

func TestBufferedFileExtend(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	mem := diskio.NewMemFile[int64]("mem", []byte("abc"))
	bf := diskio.NewBufferedFile[int64](ctx, mem, 4, 4)

	// Cache the first block before the file grows.
	buf := make([]byte, 2)
	require.NoError(t, diskio.ReadFullAt[int64](bf, buf, 0))

	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("XY"), 9))
	assert.Equal(t, int64(11), bf.Size())

	buf = make([]byte, 11)
	require.NoError(t, diskio.ReadFullAt[int64](bf, buf, 0))
	assert.Equal(t, "abc\x00\x00\x00\x00\x00\x00XY", string(buf))

	n, err := bf.ReadAt(make([]byte, 4), 10)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, bf.Flush())
	assert.Equal(t, "abc\x00\x00\x00\x00\x00\x00XY", string(mem.Bytes()))
}

// failingFile refuses all writes.
type failingFile struct {
	*diskio.MemFile[int64]
}

var errReadOnly = errors.New("read-only")

func (failingFile) WriteAt([]byte, int64) (int, error) { return 0, errReadOnly }

func TestBufferedFileLostErrors(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	mem := failingFile{diskio.NewMemFile[int64]("mem", make([]byte, 8))}
	bf := diskio.NewBufferedFile[int64](ctx, mem, 4, 1)

	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("A"), 0))
	require.NoError(t, diskio.WriteFullAt[int64](bf, []byte("B"), 4)) // evicts block 0, which fails

	err := bf.Flush()
	require.Error(t, err)
	assert.ErrorContains(t, err, errReadOnly.Error())
}

func TestBufferedFileBadBlockSize(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	assert.Panics(t, func() {
		diskio.NewBufferedFile[int64](ctx, diskio.NewMemFile[int64]("mem", nil), 0, 1)
	})
}
