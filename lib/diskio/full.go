// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"errors"
	"fmt"
	"io"
)

// ReaderAtFunc adapts a plain function to the ReaderAt interface.
// It never implements FullReaderAt, so it is the way for a
// FullReaderAt implementation to get at the generic loop:
//
//	func (f *myFile) ReadFullAt(p []byte, off int64) error {
//	        if !f.fast {
//	                return diskio.ReadFullAt[int64](diskio.ReaderAtFunc[int64](f.ReadAt), p, off)
//	        }
//	        …
//	}
type ReaderAtFunc[A ~int64] func(p []byte, off A) (int, error)

func (fn ReaderAtFunc[A]) ReadAt(p []byte, off A) (int, error) { return fn(p, off) }

// WriterAtFunc is the WriterAt counterpart of ReaderAtFunc.
type WriterAtFunc[A ~int64] func(p []byte, off A) (int, error)

func (fn WriterAtFunc[A]) WriteAt(p []byte, off A) (int, error) { return fn(p, off) }

// ReadFullAt reads exactly len(p) bytes starting at 'off', or returns
// an error.  If the data runs out before 'p' is full, the error is
// io.ErrUnexpectedEOF.  Interruptions (ErrInterrupted, EINTR) are
// retried.  If 'r' implements FullReaderAt, that is used instead.
//
// On error the contents of 'p' are unspecified.
func ReadFullAt[A ~int64](r ReaderAt[A], p []byte, off A) error {
	if fr, ok := r.(FullReaderAt[A]); ok {
		return fr.ReadFullAt(p, off)
	}
	return readFull(r.ReadAt, p, off)
}

// WriteFullAt writes all of 'p' starting at 'off', or returns an
// error.  A write that makes no progress fails with ErrWriteZero.
// Interruptions (ErrInterrupted, EINTR) are retried.  If 'w'
// implements FullWriterAt, that is used instead.
func WriteFullAt[A ~int64](w WriterAt[A], p []byte, off A) error {
	if fw, ok := w.(FullWriterAt[A]); ok {
		return fw.WriteFullAt(p, off)
	}
	return writeFull(w.WriteAt, p, off)
}

// MutReadFullAt is ReadFullAt for the exclusive-handle family.
func MutReadFullAt[A ~int64](r MutReaderAt[A], p []byte, off A) error {
	if fr, ok := r.(MutFullReaderAt[A]); ok {
		return fr.MutReadFullAt(p, off)
	}
	return readFull(r.MutReadAt, p, off)
}

// MutWriteFullAt is WriteFullAt for the exclusive-handle family.
func MutWriteFullAt[A ~int64](w MutWriterAt[A], p []byte, off A) error {
	if fw, ok := w.(MutFullWriterAt[A]); ok {
		return fw.MutWriteFullAt(p, off)
	}
	return writeFull(w.MutWriteAt, p, off)
}

func checkCount(n, max int) error {
	if n < 0 || n > max {
		return fmt.Errorf("%w: %v (buffer length %v)", ErrInvalidCount, n, max)
	}
	return nil
}

func readFull[A ~int64](readAt func([]byte, A) (int, error), p []byte, off A) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := readAt(p, off)
		if _err := checkCount(n, len(p)); _err != nil {
			return _err
		}
		p = p[n:]
		off += A(n)
		switch {
		case err == nil:
			if n == 0 {
				return io.ErrUnexpectedEOF
			}
		case errors.Is(err, io.EOF):
			if len(p) > 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		case isInterrupted(err):
			// try again
		default:
			return err
		}
	}
	return nil
}

func writeFull[A ~int64](writeAt func([]byte, A) (int, error), p []byte, off A) error {
	if err := checkOffset(off); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := writeAt(p, off)
		if _err := checkCount(n, len(p)); _err != nil {
			return _err
		}
		p = p[n:]
		off += A(n)
		switch {
		case err == nil:
			if n == 0 {
				return ErrWriteZero
			}
		case isInterrupted(err):
			// try again
		default:
			return err
		}
	}
	return nil
}
