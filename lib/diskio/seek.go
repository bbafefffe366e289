// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"io"
)

// SeekReader provides positional reads on top of an io.ReadSeeker by
// seeking before every read.  Because that moves the stream's cursor,
// it only implements the exclusive-handle family; wrap it in a Locked
// to share it.
type SeekReader[A ~int64] struct {
	inner io.ReadSeeker
}

var _ MutFullReaderAt[assertAddr] = (*SeekReader[assertAddr])(nil)

func NewSeekReader[A ~int64](r io.ReadSeeker) *SeekReader[A] {
	return &SeekReader[A]{inner: r}
}

func (sr *SeekReader[A]) Unwrap() io.ReadSeeker { return sr.inner }

func (sr *SeekReader[A]) seek(off A) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	pos, err := sr.inner.Seek(int64(off), io.SeekStart)
	if err != nil {
		return err
	}
	if pos != int64(off) {
		return &SeekMismatchError{Want: int64(off), Got: pos}
	}
	return nil
}

func (sr *SeekReader[A]) read(p []byte, _ A) (int, error) {
	return sr.inner.Read(p)
}

func (sr *SeekReader[A]) MutReadAt(p []byte, off A) (int, error) {
	if err := sr.seek(off); err != nil {
		return 0, err
	}
	return sr.inner.Read(p)
}

// MutReadFullAt seeks once, then reads sequentially until 'p' is
// full.
func (sr *SeekReader[A]) MutReadFullAt(p []byte, off A) error {
	if err := sr.seek(off); err != nil {
		return err
	}
	return readFull(sr.read, p, off)
}

// SeekReadWriter is SeekReader for streams that can also be written.
type SeekReadWriter[A ~int64] struct {
	SeekReader[A]
	inner io.ReadWriteSeeker
}

var (
	_ MutFullReaderAt[assertAddr] = (*SeekReadWriter[assertAddr])(nil)
	_ MutFullWriterAt[assertAddr] = (*SeekReadWriter[assertAddr])(nil)
)

func NewSeekReadWriter[A ~int64](rw io.ReadWriteSeeker) *SeekReadWriter[A] {
	return &SeekReadWriter[A]{
		SeekReader: SeekReader[A]{inner: rw},
		inner:      rw,
	}
}

func (srw *SeekReadWriter[A]) Unwrap() io.ReadWriteSeeker { return srw.inner }

func (srw *SeekReadWriter[A]) write(p []byte, _ A) (int, error) {
	return srw.inner.Write(p)
}

func (srw *SeekReadWriter[A]) MutWriteAt(p []byte, off A) (int, error) {
	if err := srw.seek(off); err != nil {
		return 0, err
	}
	return srw.inner.Write(p)
}

// MutWriteFullAt seeks once, then writes sequentially until all of
// 'p' has been written.
func (srw *SeekReadWriter[A]) MutWriteFullAt(p []byte, off A) error {
	if err := srw.seek(off); err != nil {
		return err
	}
	return writeFull(srw.write, p, off)
}
