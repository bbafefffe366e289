// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/posio/lib/diskio"
)

func FuzzStatefulReader(f *testing.F) {
	f.Add([]byte("hello world"))
	f.Fuzz(func(t *testing.T, content []byte) {
		t.Logf("content=%q", content)
		file := diskio.NewMemFile[int64](t.Name(), bytes.Clone(content))
		reader := diskio.NewStatefulFile[int64](file)
		if err := iotest.TestReader(reader, content); err != nil {
			t.Error(err)
		}
	})
}

func FuzzStatefulBufferedReader(f *testing.F) {
	f.Add([]byte("hello world"))
	f.Fuzz(func(t *testing.T, content []byte) {
		t.Logf("content=%q", content)
		var file diskio.File[int64] = diskio.NewMemFile[int64](t.Name(), bytes.Clone(content))
		ctx := dlog.NewTestContext(t, false)
		file = diskio.NewBufferedFile[int64](ctx, file, 4, 2)
		reader := diskio.NewStatefulFile[int64](file)
		if err := iotest.TestReader(reader, content); err != nil {
			t.Error(err)
		}
	})
}

func TestStatefulWriteSeek(t *testing.T) {
	t.Parallel()
	mem := diskio.NewMemFile[int64]("mem", nil)
	sf := diskio.NewStatefulFile[int64](mem)

	n, err := sf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, sf.WriteByte('!'))
	assert.Equal(t, int64(6), sf.Pos())

	pos, err := sf.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)
	b, err := sf.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('!'), b)

	_, err = sf.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	pos, err = sf.Seek(-10, io.SeekCurrent)
	assert.ErrorIs(t, err, diskio.ErrNegativeOffset)
	assert.Equal(t, int64(6), pos)

	_, err = sf.Seek(0, 42)
	assert.Error(t, err)

	assert.Equal(t, []byte("hello!"), mem.Bytes())
}

// A StatefulFile is a ReadWriteSeeker, so a SeekReadWriter over it
// should behave exactly like the File underneath.
func TestStatefulSeekRoundTrip(t *testing.T) {
	t.Parallel()
	mem := diskio.NewMemFile[int64]("mem", []byte("0123456789"))
	srw := diskio.NewSeekReadWriter[int64](diskio.NewStatefulFile[int64](mem))

	buf := make([]byte, 3)
	require.NoError(t, diskio.MutReadFullAt[int64](srw, buf, 4))
	assert.Equal(t, []byte("456"), buf)

	require.NoError(t, diskio.MutWriteFullAt[int64](srw, []byte("abc"), 8))
	assert.Equal(t, []byte("01234567abc"), mem.Bytes())
}
