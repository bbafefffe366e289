// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"fmt"
	"io"
)

// SectionFile is a window [base, base+size) onto another File, in the
// manner of io.SectionReader but for both reading and writing.
// Offsets given to a SectionFile are relative to 'base'; writes that
// would go past the end of the window are cut short with
// io.ErrShortWrite.
type SectionFile[A ~int64] struct {
	inner File[A]
	base  A
	size  A
}

var _ File[assertAddr] = (*SectionFile[assertAddr])(nil)

func NewSectionFile[A ~int64](file File[A], base, size A) *SectionFile[A] {
	if base < 0 || size < 0 {
		panic(fmt.Errorf("diskio.NewSectionFile: invalid section: base=%v size=%v", base, size))
	}
	return &SectionFile[A]{
		inner: file,
		base:  base,
		size:  size,
	}
}

func (sf *SectionFile[A]) Name() string {
	return fmt.Sprintf("%s[%v:%v]", sf.inner.Name(), int64(sf.base), int64(sf.base+sf.size))
}

func (sf *SectionFile[A]) Size() A      { return sf.size }
func (sf *SectionFile[A]) Close() error { return sf.inner.Close() }

func (sf *SectionFile[A]) ReadAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	if off >= sf.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if room := sf.size - off; A(len(p)) > room {
		n, err := sf.inner.ReadAt(p[:room], sf.base+off)
		if err == nil && n == int(room) {
			err = io.EOF
		}
		return n, err
	}
	return sf.inner.ReadAt(p, sf.base+off)
}

func (sf *SectionFile[A]) WriteAt(p []byte, off A) (int, error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	if off >= sf.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.ErrShortWrite
	}
	if room := sf.size - off; A(len(p)) > room {
		n, err := sf.inner.WriteAt(p[:room], sf.base+off)
		if err == nil && n == int(room) {
			err = io.ErrShortWrite
		}
		return n, err
	}
	return sf.inner.WriteAt(p, sf.base+off)
}
