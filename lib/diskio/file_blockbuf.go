// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package diskio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"

	"git.lukeshu.com/posio/lib/containers"
)

type bufferedBlock[A ~int64] struct {
	Addr  A
	Dirty bool
	Dat   []byte
}

// BufferedFile is a write-back block cache in front of another File.
// Blocks are loaded whole, and dirty blocks are written back when they
// are evicted or when Flush is called.
//
// Errors writing back blocks that are evicted (rather than flushed)
// can't be returned to anyone, so they are logged; the next Flush
// also reports them.
type BufferedFile[A ~int64] struct {
	ctx       context.Context //nolint:containedctx // For logging from methods
	inner     File[A]
	blockSize A

	mu         sync.Mutex
	size       A
	blockCache *containers.LRUCache[A, *bufferedBlock[A]]
	lostErrs   derror.MultiError
}

var _ File[assertAddr] = (*BufferedFile[assertAddr])(nil)

func NewBufferedFile[A ~int64](ctx context.Context, file File[A], blockSize A, cacheSize int) *BufferedFile[A] {
	if blockSize <= 0 {
		panic(fmt.Errorf("diskio.NewBufferedFile: invalid block size: %v", blockSize))
	}
	ret := &BufferedFile[A]{
		ctx:       ctx,
		inner:     file,
		blockSize: blockSize,
		size:      file.Size(),
	}
	ret.blockCache = containers.NewLRUCache[A, *bufferedBlock[A]](cacheSize, ret.evict)
	return ret
}

func (bf *BufferedFile[A]) evict(_ A, block *bufferedBlock[A]) {
	if err := bf.writeBack(block); err != nil {
		dlog.Errorf(bf.ctx, "i/o error: write: %v", err)
		bf.lostErrs = append(bf.lostErrs, err)
	}
}

func (bf *BufferedFile[A]) writeBack(block *bufferedBlock[A]) error {
	if !block.Dirty {
		return nil
	}
	if err := WriteFullAt[A](bf.inner, block.Dat, block.Addr); err != nil {
		return err
	}
	block.Dirty = false
	return nil
}

func (bf *BufferedFile[A]) Name() string { return bf.inner.Name() }

func (bf *BufferedFile[A]) Size() A {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.size
}

// Flush writes back every dirty block, without evicting anything.
func (bf *BufferedFile[A]) Flush() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.flushLocked()
}

func (bf *BufferedFile[A]) flushLocked() error {
	errs := bf.lostErrs
	bf.lostErrs = nil
	for _, addr := range bf.blockCache.Keys() {
		block, ok := bf.blockCache.Peek(addr)
		if !ok {
			continue
		}
		if err := bf.writeBack(block); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (bf *BufferedFile[A]) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	var errs derror.MultiError
	if err := bf.flushLocked(); err != nil {
		errs = append(errs, err)
	}
	bf.blockCache.Purge()
	if len(bf.lostErrs) > 0 {
		errs = append(errs, bf.lostErrs...)
		bf.lostErrs = nil
	}
	if err := bf.inner.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// getBlock returns the cached block starting at 'blockAddr', loading
// it if necessary.  The returned block's Dat covers exactly the part
// of the block that is before bf.size.
func (bf *BufferedFile[A]) getBlock(blockAddr A) (*bufferedBlock[A], error) {
	block, ok := bf.blockCache.Get(blockAddr)
	if !ok {
		block = &bufferedBlock[A]{
			Addr: blockAddr,
			Dat:  make([]byte, bf.blockSize),
		}
		n, err := readUpTo[A](bf.inner, block.Dat[:bf.validLen(blockAddr)], blockAddr)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		block.Dat = block.Dat[:n]
		bf.blockCache.Add(blockAddr, block)
	}
	// Anything between what the inner file had and bf.size is a
	// gap left by a not-yet-flushed write further on; it reads as
	// zeros.
	if valid := bf.validLen(blockAddr); A(len(block.Dat)) < valid {
		have := len(block.Dat)
		block.Dat = block.Dat[:valid]
		for i := have; i < int(valid); i++ {
			block.Dat[i] = 0
		}
	}
	return block, nil
}

func (bf *BufferedFile[A]) validLen(blockAddr A) A {
	valid := bf.size - blockAddr
	if valid > bf.blockSize {
		valid = bf.blockSize
	}
	if valid < 0 {
		valid = 0
	}
	return valid
}

// readUpTo is like ReadFullAt, but stops without error at the end of
// the data, and reports how much it read.
func readUpTo[A ~int64](r ReaderAt[A], p []byte, off A) (int, error) {
	done := 0
	for done < len(p) {
		n, err := r.ReadAt(p[done:], off+A(done))
		if _err := checkCount(n, len(p)-done); _err != nil {
			return done, _err
		}
		done += n
		switch {
		case err == nil:
			if n == 0 {
				return done, io.EOF
			}
		case isInterrupted(err):
		default:
			return done, err
		}
	}
	return done, nil
}

func (bf *BufferedFile[A]) ReadAt(dat []byte, off A) (n int, err error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	bf.mu.Lock()
	defer bf.mu.Unlock()
	done := 0
	for done < len(dat) {
		n, err := bf.maybeShortReadAt(dat[done:], off+A(done))
		done += n
		if err != nil {
			return done, err
		}
	}
	return done, nil
}

func (bf *BufferedFile[A]) maybeShortReadAt(dat []byte, off A) (n int, err error) {
	if off >= bf.size {
		return 0, io.EOF
	}
	offsetWithinBlock := off % bf.blockSize
	blockOffset := off - offsetWithinBlock

	cachedBlock, err := bf.getBlock(blockOffset)
	if err != nil {
		return 0, err
	}

	n = copy(dat, cachedBlock.Dat[offsetWithinBlock:])
	if n < len(dat) && A(len(cachedBlock.Dat)) < bf.blockSize {
		return n, io.EOF
	}
	return n, nil
}

func (bf *BufferedFile[A]) WriteAt(dat []byte, off A) (n int, err error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}
	bf.mu.Lock()
	defer bf.mu.Unlock()
	done := 0
	for done < len(dat) {
		n, err := bf.maybeShortWriteAt(dat[done:], off+A(done))
		done += n
		if err != nil {
			return done, err
		}
	}
	return done, nil
}

func (bf *BufferedFile[A]) maybeShortWriteAt(dat []byte, off A) (n int, err error) {
	offsetWithinBlock := off % bf.blockSize
	blockOffset := off - offsetWithinBlock

	cachedBlock, err := bf.getBlock(blockOffset)
	if err != nil {
		return 0, err
	}

	end := offsetWithinBlock + A(len(dat))
	if end > bf.blockSize {
		end = bf.blockSize
	}
	if have := A(len(cachedBlock.Dat)); end > have {
		// Extending the file; cap(Dat) is always blockSize.
		cachedBlock.Dat = cachedBlock.Dat[:end]
		for i := have; i < offsetWithinBlock; i++ {
			cachedBlock.Dat[i] = 0
		}
		if blockOffset+end > bf.size {
			bf.size = blockOffset + end
		}
	}

	cachedBlock.Dirty = true
	n = copy(cachedBlock.Dat[offsetWithinBlock:], dat)
	return n, nil
}
