// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build windows

package diskio

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"

	"golang.org/x/sys/windows"
)

var _ MutFile[assertAddr] = (*OSFile[assertAddr])(nil)

// OpenFile opens a file for positional I/O.  On windows the native
// calls move the file pointer, so the *OSFile is wrapped in a
// LockedFile.
func OpenFile[A ~int64](ctx context.Context, name string, flag int, perm fs.FileMode) (File[A], error) {
	f, err := OpenOSFile[A](name, flag, perm)
	if err != nil {
		return nil, err
	}
	return NewLockedFile[A](ctx, f, LockerLock{new(sync.Mutex)}), nil
}

func overlapped(off int64) *windows.Overlapped {
	return &windows.Overlapped{
		Offset:     uint32(off),
		OffsetHigh: uint32(off >> 32),
	}
}

// MutReadAt is a single ReadFile at an explicit offset.  It moves the
// file pointer.
func (f *OSFile[A]) MutReadAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	var done uint32
	err := windows.ReadFile(windows.Handle(f.fh.Fd()), p, &done, overlapped(int64(off)))
	if errors.Is(err, windows.ERROR_HANDLE_EOF) || (err == nil && done == 0 && len(p) > 0) {
		err = io.EOF
	}
	return int(done), err
}

// MutWriteAt is a single WriteFile at an explicit offset.  It moves
// the file pointer.
func (f *OSFile[A]) MutWriteAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	var done uint32
	err := windows.WriteFile(windows.Handle(f.fh.Fd()), p, &done, overlapped(int64(off)))
	return int(done), err
}
