// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"context"

	"github.com/datawire/dlib/dlog"
)

// LockedFile is a Locked that also carries through the File methods
// of a MutFile.
type LockedFile[A ~int64] struct {
	*Locked[A]
	file MutFile[A]
}

var _ File[assertAddr] = (*LockedFile[assertAddr])(nil)

func NewLockedFile[A ~int64](ctx context.Context, file MutFile[A], lock Lock) *LockedFile[A] {
	return &LockedFile[A]{
		Locked: NewLockedWith[A](ctx, file, lock),
		file:   file,
	}
}

func (lf *LockedFile[A]) Name() string { return lf.file.Name() }

// Size returns 0 (and logs why) if the LockedFile is tainted or the
// lock cannot be acquired.
func (lf *LockedFile[A]) Size() A {
	var size A
	if err := lf.with(func() error {
		size = lf.file.Size()
		return nil
	}); err != nil {
		dlog.Errorf(lf.ctx, "diskio.LockedFile: size of %q: %v", lf.file.Name(), err)
		return 0
	}
	return size
}

// Close closes the underlying file, even if the LockedFile is
// tainted.
func (lf *LockedFile[A]) Close() error {
	if err := lf.lock.Acquire(); err != nil {
		return &LockError{Err: err}
	}
	defer lf.lock.Release()
	return lf.file.Close()
}
