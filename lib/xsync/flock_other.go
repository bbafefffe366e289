// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

//go:build !unix

package xsync

import (
	"errors"
	"fmt"
)

// FileLock is an advisory flock(2) lock on a file.  It is only
// available on unix; elsewhere NewFileLock always fails.
type FileLock struct{}

func NewFileLock(filename string) (*FileLock, error) {
	return nil, fmt.Errorf("flock %q: %w", filename, errors.ErrUnsupported)
}

func (*FileLock) Acquire() error    { return errors.ErrUnsupported }
func (*FileLock) TryAcquire() error { return errors.ErrUnsupported }
func (*FileLock) Release()          {}
func (*FileLock) Close() error      { return nil }
