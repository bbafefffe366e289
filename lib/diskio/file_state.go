// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"errors"
	"fmt"
	"io"
)

// StatefulFile adds a cursor to a File, so that it can be used as an
// io.ReadWriteSeeker.  It is the inverse of SeekReadWriter.
//
// The cursor is not synchronized; a StatefulFile must not be used
// from multiple goroutines at once (the File underneath it may be).
type StatefulFile[A ~int64] struct {
	inner File[A]
	pos   A
}

var (
	_ File[assertAddr]   = (*StatefulFile[assertAddr])(nil)
	_ io.ReadWriteSeeker = (*StatefulFile[int64])(nil)
	_ io.ByteReader      = (*StatefulFile[int64])(nil)
	_ io.ByteWriter      = (*StatefulFile[int64])(nil)
)

func NewStatefulFile[A ~int64](file File[A]) *StatefulFile[A] {
	return &StatefulFile[A]{
		inner: file,
	}
}

func (sf *StatefulFile[A]) Name() string                           { return sf.inner.Name() }
func (sf *StatefulFile[A]) Size() A                                { return sf.inner.Size() }
func (sf *StatefulFile[A]) Close() error                           { return sf.inner.Close() }
func (sf *StatefulFile[A]) ReadAt(dat []byte, off A) (int, error)  { return sf.inner.ReadAt(dat, off) }
func (sf *StatefulFile[A]) WriteAt(dat []byte, off A) (int, error) { return sf.inner.WriteAt(dat, off) }

// Pos returns the current cursor position.
func (sf *StatefulFile[A]) Pos() A { return sf.pos }

func (sf *StatefulFile[A]) Read(dat []byte) (n int, err error) {
	n, err = sf.ReadAt(dat, sf.pos)
	sf.pos += A(n)
	if err == nil && n == 0 && len(dat) > 0 {
		err = io.EOF
	}
	return n, err
}

func (sf *StatefulFile[A]) ReadByte() (byte, error) {
	var dat [1]byte
	_, err := io.ReadFull(sf, dat[:])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return dat[0], err
}

func (sf *StatefulFile[A]) Write(dat []byte) (n int, err error) {
	n, err = sf.WriteAt(dat, sf.pos)
	sf.pos += A(n)
	if err == nil && n < len(dat) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (sf *StatefulFile[A]) WriteByte(c byte) error {
	_, err := sf.Write([]byte{c})
	return err
}

func (sf *StatefulFile[A]) Seek(offset int64, whence int) (int64, error) {
	var base A
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = sf.pos
	case io.SeekEnd:
		base = sf.inner.Size()
	default:
		return int64(sf.pos), fmt.Errorf("diskio.StatefulFile.Seek: invalid whence: %v", whence)
	}
	pos := base + A(offset)
	if pos < 0 {
		return int64(sf.pos), fmt.Errorf("diskio.StatefulFile.Seek: %w: %v", ErrNegativeOffset, int64(pos))
	}
	sf.pos = pos
	return int64(pos), nil
}
