// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build !unix && !windows

package diskio

import (
	"context"
	"io/fs"
	"sync"
)

var (
	_ MutFile[assertAddr]         = (*OSFile[assertAddr])(nil)
	_ MutFullReaderAt[assertAddr] = (*OSFile[assertAddr])(nil)
	_ MutFullWriterAt[assertAddr] = (*OSFile[assertAddr])(nil)
)

// OpenFile opens a file for positional I/O.  Without native
// positional calls the *OSFile has to seek, so it is wrapped in a
// LockedFile.
func OpenFile[A ~int64](ctx context.Context, name string, flag int, perm fs.FileMode) (File[A], error) {
	f, err := OpenOSFile[A](name, flag, perm)
	if err != nil {
		return nil, err
	}
	return NewLockedFile[A](ctx, f, LockerLock{new(sync.Mutex)}), nil
}

func (f *OSFile[A]) seeker() *SeekReadWriter[A] { return NewSeekReadWriter[A](f.fh) }

func (f *OSFile[A]) MutReadAt(p []byte, off A) (int, error) { return f.seeker().MutReadAt(p, off) }
func (f *OSFile[A]) MutWriteAt(p []byte, off A) (int, error) {
	return f.seeker().MutWriteAt(p, off)
}
func (f *OSFile[A]) MutReadFullAt(p []byte, off A) error  { return f.seeker().MutReadFullAt(p, off) }
func (f *OSFile[A]) MutWriteFullAt(p []byte, off A) error { return f.seeker().MutWriteFullAt(p, off) }
