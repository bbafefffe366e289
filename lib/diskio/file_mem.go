// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"fmt"
	"io"
	"math"
	"sync"
)

// MemFile is an in-memory File.  Writes past the end grow it,
// zero-filling any gap.
type MemFile[A ~int64] struct {
	name string

	mu  sync.RWMutex
	dat []byte
}

var _ File[assertAddr] = (*MemFile[assertAddr])(nil)

// maxMemFileSize is the largest allocation the Go runtime will
// attempt on 64-bit platforms.
const maxMemFileSize = min(math.MaxInt, 1<<48)

func checkMemFileSize(size int64) error {
	if size > maxMemFileSize {
		return fmt.Errorf("%w: %v exceeds %v", ErrOffsetTooLarge, size, int64(maxMemFileSize))
	}
	return nil
}

// NewMemFile returns a MemFile holding 'dat'; the MemFile takes
// ownership of 'dat'.
func NewMemFile[A ~int64](name string, dat []byte) *MemFile[A] {
	return &MemFile[A]{
		name: name,
		dat:  dat,
	}
}

func (f *MemFile[A]) Name() string { return f.name }
func (f *MemFile[A]) Close() error { return nil }

func (f *MemFile[A]) Size() A {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return A(len(f.dat))
}

// Bytes returns a copy of the current contents.
func (f *MemFile[A]) Bytes() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]byte(nil), f.dat...)
}

func (f *MemFile[A]) Truncate(size A) error {
	if err := checkOffset(size); err != nil {
		return err
	}
	if err := checkMemFileSize(int64(size)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resize(int(size))
	return nil
}

func (f *MemFile[A]) resize(size int) {
	switch {
	case size <= len(f.dat):
		f.dat = f.dat[:size]
	case size <= cap(f.dat):
		old := len(f.dat)
		f.dat = f.dat[:size]
		for i := old; i < size; i++ {
			f.dat[i] = 0
		}
	default:
		f.dat = append(f.dat, make([]byte, size-len(f.dat))...)
	}
}

func (f *MemFile[A]) ReadAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if off >= A(len(f.dat)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, f.dat[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MemFile[A]) WriteAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	if int64(off) > maxMemFileSize-int64(len(p)) {
		return 0, fmt.Errorf("%w: writing %v bytes at %v would exceed %v",
			ErrOffsetTooLarge, len(p), off, int64(maxMemFileSize))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if end := int(off) + len(p); end > len(f.dat) {
		f.resize(end)
	}
	return copy(f.dat[off:], p), nil
}
