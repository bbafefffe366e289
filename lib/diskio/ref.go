// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"context"
)

// A Ref is an owned, indirect handle to a T; Deref returns the T it
// refers to.
type Ref[T any] interface {
	Deref() T
}

// Box is the trivial Ref: it holds the T directly.  It is mostly
// useful for holding an interface value, such as a
// MutReadWriterAt[A] that was chosen at runtime.
type Box[T any] struct {
	V T
}

var _ Ref[int] = (*Box[int])(nil)

func (b *Box[T]) Deref() T { return b.V }

// Deref implements the exclusive-handle family by forwarding every
// call to whatever its Ref currently refers to.
type Deref[A ~int64] struct {
	Ref Ref[MutReadWriterAt[A]]
}

var (
	_ MutFullReaderAt[assertAddr] = Deref[assertAddr]{}
	_ MutFullWriterAt[assertAddr] = Deref[assertAddr]{}
)

func (d Deref[A]) MutReadAt(p []byte, off A) (int, error) {
	return d.Ref.Deref().MutReadAt(p, off)
}

func (d Deref[A]) MutWriteAt(p []byte, off A) (int, error) {
	return d.Ref.Deref().MutWriteAt(p, off)
}

func (d Deref[A]) MutReadFullAt(p []byte, off A) error {
	return MutReadFullAt[A](d.Ref.Deref(), p, off)
}

func (d Deref[A]) MutWriteFullAt(p []byte, off A) error {
	return MutWriteFullAt[A](d.Ref.Deref(), p, off)
}

// NewLockedRef is NewLockedWith for a store that is reached through
// a Ref.  The Ref is dereferenced only while the lock is held.
func NewLockedRef[A ~int64](ctx context.Context, ref Ref[MutReadWriterAt[A]], lock Lock) *Locked[A] {
	return NewLockedWith[A](ctx, Deref[A]{Ref: ref}, lock)
}
