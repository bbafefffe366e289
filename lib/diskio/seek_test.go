// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio_test

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/posio/lib/diskio"
)

var seekTestData = []byte{4, 5, 6, 7, 8, 9, 10, 11}

func TestSeekReader(t *testing.T) {
	t.Parallel()
	sr := diskio.NewSeekReader[int64](bytes.NewReader(seekTestData))

	buf := make([]byte, 2)
	require.NoError(t, diskio.MutReadFullAt[int64](sr, buf, 2))
	assert.Equal(t, []byte{6, 7}, buf)

	buf = make([]byte, 3)
	require.NoError(t, diskio.MutReadFullAt[int64](sr, buf, 3))
	assert.Equal(t, []byte{7, 8, 9}, buf)

	n, err := sr.MutReadAt(buf, 6)
	assert.Equal(t, 2, n)
	assert.NoError(t, err)
	assert.Equal(t, []byte{10, 11}, buf[:n])

	err = diskio.MutReadFullAt[int64](sr, buf, 6)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = diskio.MutReadFullAt[int64](sr, buf, -1)
	assert.ErrorIs(t, err, diskio.ErrNegativeOffset)
}

func TestSeekReadWriter(t *testing.T) {
	t.Parallel()
	mem := diskio.NewMemFile[int64]("mem", bytes.Clone(seekTestData))
	srw := diskio.NewSeekReadWriter[int64](diskio.NewStatefulFile[int64](mem))

	require.NoError(t, diskio.MutWriteFullAt[int64](srw, []byte{44, 44}, 1))
	n, err := srw.MutWriteAt([]byte{99}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	buf := make([]byte, 3)
	require.NoError(t, diskio.MutReadFullAt[int64](srw, buf, 0))
	assert.Equal(t, []byte{4, 44, 44}, buf)
	assert.Equal(t, []byte{4, 44, 44, 7, 8, 9, 10, 99}, mem.Bytes())
}

// driftingSeeker lands 'drift' bytes away from wherever it is asked
// to seek to.
type driftingSeeker struct {
	io.ReadSeeker
	drift int64
}

func (s driftingSeeker) Seek(offset int64, whence int) (int64, error) {
	return s.ReadSeeker.Seek(offset+s.drift, whence)
}

func TestSeekMismatch(t *testing.T) {
	t.Parallel()
	sr := diskio.NewSeekReader[int64](driftingSeeker{
		ReadSeeker: bytes.NewReader(seekTestData),
		drift:      1,
	})

	buf := make([]byte, 2)
	_, err := sr.MutReadAt(buf, 2)
	var mismatch *diskio.SeekMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, int64(2), mismatch.Want)
	assert.Equal(t, int64(3), mismatch.Got)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = diskio.MutReadFullAt[int64](sr, buf, 0)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// A seek adapter shared between goroutines goes through Locked.
func TestSeekReaderLocked(t *testing.T) {
	t.Parallel()
	sr := diskio.NewSeekReader[int64](bytes.NewReader(seekTestData))
	shared := diskio.NewLockedReader[int64](dlog.NewTestContext(t, false), sr, diskio.LockerLock{Locker: new(sync.Mutex)})

	buf := make([]byte, 3)
	require.NoError(t, diskio.ReadFullAt[int64](shared, buf, 3))
	assert.Equal(t, []byte{7, 8, 9}, buf)

	_, err := shared.WriteAt(buf, 0)
	assert.ErrorIs(t, err, diskio.ErrUnsupported)
}
