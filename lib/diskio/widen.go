// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

// Holding exclusive access is always sufficient when only shared
// access was required, so anything in the shared-handle family can
// be used as the exclusive-handle family by forwarding each call
// unchanged.  The Widened* types do that forwarding.

type WidenedReader[A ~int64] struct {
	Inner ReaderAt[A]
}

var _ MutFullReaderAt[assertAddr] = WidenedReader[assertAddr]{}

func WidenReader[A ~int64](r ReaderAt[A]) WidenedReader[A] {
	return WidenedReader[A]{Inner: r}
}

func (w WidenedReader[A]) MutReadAt(p []byte, off A) (int, error) { return w.Inner.ReadAt(p, off) }
func (w WidenedReader[A]) MutReadFullAt(p []byte, off A) error {
	return ReadFullAt[A](w.Inner, p, off)
}

type WidenedWriter[A ~int64] struct {
	Inner WriterAt[A]
}

var _ MutFullWriterAt[assertAddr] = WidenedWriter[assertAddr]{}

func WidenWriter[A ~int64](w WriterAt[A]) WidenedWriter[A] {
	return WidenedWriter[A]{Inner: w}
}

func (w WidenedWriter[A]) MutWriteAt(p []byte, off A) (int, error) { return w.Inner.WriteAt(p, off) }
func (w WidenedWriter[A]) MutWriteFullAt(p []byte, off A) error {
	return WriteFullAt[A](w.Inner, p, off)
}

type WidenedReadWriter[A ~int64] struct {
	Inner ReadWriterAt[A]
}

var (
	_ MutFullReaderAt[assertAddr] = WidenedReadWriter[assertAddr]{}
	_ MutFullWriterAt[assertAddr] = WidenedReadWriter[assertAddr]{}
)

// Widen returns 'rw' as the exclusive-handle family.
func Widen[A ~int64](rw ReadWriterAt[A]) WidenedReadWriter[A] {
	return WidenedReadWriter[A]{Inner: rw}
}

func (w WidenedReadWriter[A]) MutReadAt(p []byte, off A) (int, error) {
	return w.Inner.ReadAt(p, off)
}

func (w WidenedReadWriter[A]) MutWriteAt(p []byte, off A) (int, error) {
	return w.Inner.WriteAt(p, off)
}

func (w WidenedReadWriter[A]) MutReadFullAt(p []byte, off A) error {
	return ReadFullAt[A](w.Inner, p, off)
}

func (w WidenedReadWriter[A]) MutWriteFullAt(p []byte, off A) error {
	return WriteFullAt[A](w.Inner, p, off)
}

// WidenedFile is a File viewed as a MutFile.
type WidenedFile[A ~int64] struct {
	WidenedReadWriter[A]
	file File[A]
}

var _ MutFile[assertAddr] = WidenedFile[assertAddr]{}

func WidenFile[A ~int64](f File[A]) WidenedFile[A] {
	return WidenedFile[A]{
		WidenedReadWriter: Widen[A](f),
		file:              f,
	}
}

func (w WidenedFile[A]) Name() string { return w.file.Name() }
func (w WidenedFile[A]) Size() A      { return w.file.Size() }
func (w WidenedFile[A]) Close() error { return w.file.Close() }
