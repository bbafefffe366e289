// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
)

// A Lock is the mutual-exclusion primitive that a Locked bridge
// serializes calls with.  Acquire blocks until the lock is held
// exclusively, or fails.
type Lock interface {
	Acquire() error
	Release()
}

// LockerLock adapts a sync.Locker (such as *sync.Mutex, the write
// side of *sync.RWMutex, or *xsync.ReentrantMutex) to a Lock that
// never fails to acquire.
type LockerLock struct {
	sync.Locker
}

func (l LockerLock) Acquire() error { l.Lock(); return nil }
func (l LockerLock) Release()       { l.Unlock() }

// Locked exposes an exclusive-handle store as the shared-handle
// family, by holding a lock for the duration of each call.  The lock
// is held across the whole of an exact transfer, so ReadFullAt and
// WriteFullAt are atomic with respect to each other.
//
// If a call panics while holding the lock, the Locked becomes
// tainted: the consistency of the store can no longer be vouched
// for, so every later call fails with ErrLockUnavailable without
// touching the store.  The panic itself continues to propagate.
//
// The Locked must be the only path to the store; any other access
// bypasses the lock.
type Locked[A ~int64] struct {
	ctx   context.Context //nolint:containedctx // For logging from methods
	lock  Lock
	inner MutReadWriterAt[A]

	taint atomic.Pointer[LockError]
}

var (
	_ FullReaderAt[assertAddr] = (*Locked[assertAddr])(nil)
	_ FullWriterAt[assertAddr] = (*Locked[assertAddr])(nil)
)

// NewLocked wraps 'inner' with a sync.Mutex.
func NewLocked[A ~int64](ctx context.Context, inner MutReadWriterAt[A]) *Locked[A] {
	return NewLockedWith[A](ctx, inner, LockerLock{new(sync.Mutex)})
}

func NewLockedWith[A ~int64](ctx context.Context, inner MutReadWriterAt[A], lock Lock) *Locked[A] {
	return &Locked[A]{
		ctx:   ctx,
		lock:  lock,
		inner: inner,
	}
}

// NewLockedReader is NewLockedWith for a store that can only be
// read; WriteAt and WriteFullAt return ErrUnsupported.
func NewLockedReader[A ~int64](ctx context.Context, inner MutReaderAt[A], lock Lock) *Locked[A] {
	return NewLockedWith[A](ctx, readOnly[A]{inner}, lock)
}

// NewLockedWriter is NewLockedWith for a store that can only be
// written; ReadAt and ReadFullAt return ErrUnsupported.
func NewLockedWriter[A ~int64](ctx context.Context, inner MutWriterAt[A], lock Lock) *Locked[A] {
	return NewLockedWith[A](ctx, writeOnly[A]{inner}, lock)
}

// Unwrap returns the wrapped store.  Using it while anything else
// might be using the Locked is a race.
func (l *Locked[A]) Unwrap() MutReadWriterAt[A] { return l.inner }

// Tainted returns whether the Locked has been tainted.
func (l *Locked[A]) Tainted() bool { return l.taint.Load() != nil }

// Taint marks the Locked as tainted, as if a call had panicked with
// 'reason'.  It is for callers who detect damage to the store by some
// other means.
func (l *Locked[A]) Taint(reason error) {
	l.setTaint(reason)
}

func (l *Locked[A]) setTaint(reason error) {
	if reason == nil {
		reason = errors.New("goroutine exited while holding the lock")
	}
	if l.taint.CompareAndSwap(nil, &LockError{Tainted: true, Err: reason}) {
		dlog.Errorf(l.ctx, "diskio.Locked: tainted: %v", reason)
	}
}

func (l *Locked[A]) with(fn func() error) error {
	if lerr := l.taint.Load(); lerr != nil {
		return lerr
	}
	if err := l.lock.Acquire(); err != nil {
		return &LockError{Err: err}
	}
	// Whoever we were waiting on may have tainted it.
	if lerr := l.taint.Load(); lerr != nil {
		l.lock.Release()
		return lerr
	}

	completed := false
	defer func() {
		if completed {
			l.lock.Release()
			return
		}
		r := recover()
		l.setTaint(derror.PanicToError(r))
		l.lock.Release()
		if r != nil {
			panic(r)
		}
	}()
	err := fn()
	completed = true
	return err
}

func (l *Locked[A]) ReadAt(p []byte, off A) (n int, err error) {
	if lerr := l.with(func() error {
		n, err = l.inner.MutReadAt(p, off)
		return nil
	}); lerr != nil {
		return 0, lerr
	}
	return n, err
}

func (l *Locked[A]) WriteAt(p []byte, off A) (n int, err error) {
	if lerr := l.with(func() error {
		n, err = l.inner.MutWriteAt(p, off)
		return nil
	}); lerr != nil {
		return 0, lerr
	}
	return n, err
}

func (l *Locked[A]) ReadFullAt(p []byte, off A) error {
	return l.with(func() error {
		return MutReadFullAt[A](l.inner, p, off)
	})
}

func (l *Locked[A]) WriteFullAt(p []byte, off A) error {
	return l.with(func() error {
		return MutWriteFullAt[A](l.inner, p, off)
	})
}

// one-sided stores ////////////////////////////////////////////////////////////

type readOnly[A ~int64] struct {
	inner MutReaderAt[A]
}

func (ro readOnly[A]) MutReadAt(p []byte, off A) (int, error) { return ro.inner.MutReadAt(p, off) }
func (ro readOnly[A]) MutReadFullAt(p []byte, off A) error {
	return MutReadFullAt[A](ro.inner, p, off)
}
func (readOnly[A]) MutWriteAt([]byte, A) (int, error) { return 0, ErrUnsupported }
func (readOnly[A]) MutWriteFullAt([]byte, A) error    { return ErrUnsupported }

type writeOnly[A ~int64] struct {
	inner MutWriterAt[A]
}

func (wo writeOnly[A]) MutWriteAt(p []byte, off A) (int, error) { return wo.inner.MutWriteAt(p, off) }
func (wo writeOnly[A]) MutWriteFullAt(p []byte, off A) error {
	return MutWriteFullAt[A](wo.inner, p, off)
}
func (writeOnly[A]) MutReadAt([]byte, A) (int, error) { return 0, ErrUnsupported }
func (writeOnly[A]) MutReadFullAt([]byte, A) error    { return ErrUnsupported }
