// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"io/fs"
	"os"
)

// OSFile is positional I/O on an *os.File using the host's native
// positional I/O calls.  Which family of interfaces it implements
// depends on the platform:
//
//   - On unix, pread(2)/pwrite(2) don't touch the file offset, so
//     OSFile implements the shared-handle family (ReaderAt,
//     WriterAt).
//
//   - On windows, ReadFile/WriteFile with an OVERLAPPED offset move
//     the file pointer of a synchronous handle, so OSFile only
//     implements the exclusive-handle family (MutReaderAt,
//     MutWriterAt).
//
//   - Elsewhere, OSFile seeks before reading or writing, and also
//     only implements the exclusive-handle family.
//
// OpenFile papers over the difference for callers that just want a
// File.
type OSFile[A ~int64] struct {
	fh *os.File
}

func NewOSFile[A ~int64](fh *os.File) *OSFile[A] {
	return &OSFile[A]{fh: fh}
}

func OpenOSFile[A ~int64](name string, flag int, perm fs.FileMode) (*OSFile[A], error) {
	fh, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return NewOSFile[A](fh), nil
}

func (f *OSFile[A]) Name() string { return f.fh.Name() }
func (f *OSFile[A]) Close() error { return f.fh.Close() }
func (f *OSFile[A]) Sync() error  { return f.fh.Sync() }
func (f *OSFile[A]) OS() *os.File { return f.fh }

func (f *OSFile[A]) Size() A {
	fi, err := f.fh.Stat()
	if err != nil {
		return 0
	}
	return A(fi.Size())
}
