// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package diskio implements positional (offset-addressed) I/O over
// randomly-accessible byte stores.
//
// The interfaces come in two families:
//
//   - The shared-handle family (ReaderAt, WriterAt) may be called
//     concurrently through any number of references, and never moves
//     a cursor that the store might separately expose.
//
//   - The exclusive-handle family (MutReaderAt, MutWriterAt) requires
//     the caller to hold exclusive access to the store for the
//     duration of the call, and is permitted to mutate the store's
//     internal state, including repositioning a cursor.
//
// Anything in the shared family can be used as the exclusive family
// via Widen; the other direction requires a lock, via Locked.
package diskio

import (
	"io"
)

// Shared-handle family ////////////////////////////////////////////////////////

// ReaderAt reads up to len(p) bytes starting at 'off'.  Short reads
// are not errors; (0, nil) and (n, io.EOF) both signal the end of the
// data.
type ReaderAt[A ~int64] interface {
	ReadAt(p []byte, off A) (n int, err error)
}

// WriterAt writes up to len(p) bytes starting at 'off'.  Short writes
// are not errors; (0, nil) signals that no progress could be made.
type WriterAt[A ~int64] interface {
	WriteAt(p []byte, off A) (n int, err error)
}

type ReadWriterAt[A ~int64] interface {
	ReaderAt[A]
	WriterAt[A]
}

// FullReaderAt is implemented by stores that have a better way of
// doing an exact read than calling ReadAt in a loop.  ReadFullAt
// checks for it.
type FullReaderAt[A ~int64] interface {
	ReaderAt[A]
	ReadFullAt(p []byte, off A) error
}

// FullWriterAt is the WriteFullAt counterpart to FullReaderAt.
type FullWriterAt[A ~int64] interface {
	WriterAt[A]
	WriteFullAt(p []byte, off A) error
}

// Exclusive-handle family /////////////////////////////////////////////////////

// MutReaderAt is like ReaderAt, but the caller must hold exclusive
// access to the store, and the call may move the store's cursor.
type MutReaderAt[A ~int64] interface {
	MutReadAt(p []byte, off A) (n int, err error)
}

// MutWriterAt is like WriterAt, but the caller must hold exclusive
// access to the store, and the call may move the store's cursor.
type MutWriterAt[A ~int64] interface {
	MutWriteAt(p []byte, off A) (n int, err error)
}

type MutReadWriterAt[A ~int64] interface {
	MutReaderAt[A]
	MutWriterAt[A]
}

type MutFullReaderAt[A ~int64] interface {
	MutReaderAt[A]
	MutReadFullAt(p []byte, off A) error
}

type MutFullWriterAt[A ~int64] interface {
	MutWriterAt[A]
	MutWriteFullAt(p []byte, off A) error
}

// Files ///////////////////////////////////////////////////////////////////////

type File[A ~int64] interface {
	Name() string
	Size() A
	Close() error
	ReadWriterAt[A]
}

type MutFile[A ~int64] interface {
	Name() string
	Size() A
	Close() error
	MutReadWriterAt[A]
}

type assertAddr int64

type stdReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

var (
	_ io.WriterAt = File[int64](nil)
	_ io.ReaderAt = File[int64](nil)

	_ ReadWriterAt[int64] = stdReadWriterAt(nil)
)
