// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

var (
	// ErrInterrupted may be returned by a single-call ReadAt or
	// WriteAt to report that it was interrupted before making
	// (all of) its progress, and that calling again with the same
	// arguments is the right thing to do.  The exact-transfer
	// functions retry it (and syscall.EINTR) rather than return it.
	ErrInterrupted = errors.New("operation interrupted")

	// ErrWriteZero is returned by the exact-write functions when
	// a single-call write makes no progress while bytes remain.
	ErrWriteZero = fmt.Errorf("failed to write whole buffer: %w", io.ErrShortWrite)

	// ErrLockUnavailable is returned by a Locked bridge that is
	// tainted or that could not acquire its lock.  Use errors.Is
	// to check for it; the concrete error is a *LockError.
	ErrLockUnavailable = errors.New("lock unavailable")

	ErrNegativeOffset = errors.New("negative offset")
	ErrOffsetTooLarge = errors.New("offset too large")
	ErrInvalidCount   = errors.New("invalid byte count returned")
	ErrUnsupported    = fmt.Errorf("diskio: %w", errors.ErrUnsupported)
)

func isInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, syscall.EINTR)
}

// SeekMismatchError is returned by the seek adapters when seeking to
// an absolute offset lands somewhere other than that offset.  It is
// an io.ErrUnexpectedEOF-class error.
type SeekMismatchError struct {
	Want int64
	Got  int64
}

func (e *SeekMismatchError) Error() string {
	return fmt.Sprintf("seek hasn't returned the required offset: want=%v got=%v", e.Want, e.Got)
}

func (*SeekMismatchError) Unwrap() error { return io.ErrUnexpectedEOF }

// LockError is the concrete type of the ErrLockUnavailable errors
// returned by Locked.
type LockError struct {
	// Tainted is true if the bridge refused because an earlier
	// call panicked while holding the lock; Err is then the
	// panic value.  Otherwise Err is the error from acquiring
	// the lock.
	Tainted bool
	Err     error
}

func (e *LockError) Error() string {
	if e.Tainted {
		return fmt.Sprintf("%v: tainted by earlier failure: %v", ErrLockUnavailable, e.Err)
	}
	return fmt.Sprintf("%v: %v", ErrLockUnavailable, e.Err)
}

func (e *LockError) Is(target error) bool { return target == ErrLockUnavailable }
func (e *LockError) Unwrap() error        { return e.Err }

func checkOffset[A ~int64](off A) error {
	if off < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeOffset, int64(off))
	}
	return nil
}
