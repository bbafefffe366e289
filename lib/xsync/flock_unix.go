// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build unix

package xsync

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory flock(2) lock on a file, for serializing
// access between processes.  It also holds an in-process mutex,
// because flock(2) locks belong to the open file description, and so
// don't exclude other goroutines using the same FileLock.
//
// Unlike a sync.Mutex, acquiring a FileLock can fail.
type FileLock struct {
	mu sync.Mutex
	fh *os.File
}

// NewFileLock opens (creating if need be) 'filename' to lock on.
func NewFileLock(filename string) (*FileLock, error) {
	fh, err := os.OpenFile(filename, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileLock{fh: fh}, nil
}

// Acquire blocks until the lock is held exclusively.
func (l *FileLock) Acquire() error {
	l.mu.Lock()
	for {
		err := unix.Flock(int(l.fh.Fd()), unix.LOCK_EX)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("flock %q: %w", l.fh.Name(), err)
		}
		return nil
	}
}

// TryAcquire is like Acquire, but fails with EWOULDBLOCK rather than
// waiting on another process.
func (l *FileLock) TryAcquire() error {
	if !l.mu.TryLock() {
		return fmt.Errorf("flock %q: %w", l.fh.Name(), unix.EWOULDBLOCK)
	}
	if err := unix.Flock(int(l.fh.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("flock %q: %w", l.fh.Name(), err)
	}
	return nil
}

func (l *FileLock) Release() {
	_ = unix.Flock(int(l.fh.Fd()), unix.LOCK_UN)
	l.mu.Unlock()
}

// Close closes the lock file.  It does not remove it.
func (l *FileLock) Close() error {
	return l.fh.Close()
}
