// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build unix

package diskio

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"golang.org/x/sys/unix"
)

var (
	_ File[assertAddr]         = (*OSFile[assertAddr])(nil)
	_ FullReaderAt[assertAddr] = (*OSFile[assertAddr])(nil)
	_ FullWriterAt[assertAddr] = (*OSFile[assertAddr])(nil)
)

// OpenFile opens a file for positional I/O.  On unix this is simply
// an *OSFile.
func OpenFile[A ~int64](_ context.Context, name string, flag int, perm fs.FileMode) (File[A], error) {
	return OpenOSFile[A](name, flag, perm)
}

type ioDir int

const (
	dirRead ioDir = iota
	dirWrite
)

// rawIO runs fn on the file descriptor, retrying on EAGAIN once the
// descriptor is ready in direction 'dir'.
func (f *OSFile[A]) rawIO(dir ioDir, fn func(fd int) (int, error)) (n int, err error) {
	rc, err := f.fh.SyscallConn()
	if err != nil {
		return 0, err
	}
	wait := rc.Read
	if dir == dirWrite {
		wait = rc.Write
	}
	var opErr error
	if err := wait(func(fd uintptr) bool {
		n, opErr = fn(int(fd))
		return !errors.Is(opErr, unix.EAGAIN)
	}); err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, opErr
}

// ReadAt is a single pread(2).  EINTR is returned to the caller
// rather than retried.
func (f *OSFile[A]) ReadAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	n, err := f.rawIO(dirRead, func(fd int) (int, error) {
		return unix.Pread(fd, p, int64(off))
	})
	if err == nil && n == 0 && len(p) > 0 {
		err = io.EOF
	}
	return n, err
}

// WriteAt is a single pwrite(2).  EINTR is returned to the caller
// rather than retried.
func (f *OSFile[A]) WriteAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	return f.rawIO(dirWrite, func(fd int) (int, error) {
		return unix.Pwrite(fd, p, int64(off))
	})
}

// ReadFullAt uses (*os.File).ReadAt, which already loops until the
// buffer is full.
func (f *OSFile[A]) ReadFullAt(p []byte, off A) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	_, err := f.fh.ReadAt(p, int64(off))
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// WriteFullAt uses (*os.File).WriteAt, which already loops until the
// buffer is written.
func (f *OSFile[A]) WriteFullAt(p []byte, off A) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	_, err := f.fh.WriteAt(p, int64(off))
	return err
}
