// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/pflag"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/xsync"
)

type openMode int

const (
	// modeOS uses the host's native positional I/O.
	modeOS openMode = iota
	// modeSeek seeks before every read or write, behind an
	// in-process mutex.
	modeSeek
	// modeLocked is modeSeek, but behind a flock(2) on
	// FILENAME.lock, so that several processes may share the
	// file.
	modeLocked
	// modeBuffered puts a write-back block cache in front of
	// modeOS.
	modeBuffered
)

var openModeNames = map[openMode]string{
	modeOS:       "os",
	modeSeek:     "seek",
	modeLocked:   "locked",
	modeBuffered: "buffered",
}

var _ pflag.Value = (*openMode)(nil)

// Type implements pflag.Value.
func (*openMode) Type() string { return "mode" }

// Set implements pflag.Value.
func (m *openMode) Set(str string) error {
	for mode, name := range openModeNames {
		if strings.EqualFold(str, name) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("invalid mode: %q", str)
}

// String implements pflag.Value.
func (m *openMode) String() string {
	name, ok := openModeNames[*m]
	if !ok {
		panic(fmt.Errorf("invalid mode: %#v", *m))
	}
	return name
}

type openConfig struct {
	Mode        openMode
	BlockSize   int64
	CacheBlocks int
}

func (cfg *openConfig) AddFlags(flags *pflag.FlagSet) {
	flags.Var(&cfg.Mode, "mode", "how to access the file: `os|seek|locked|buffered`")
	flags.Int64Var(&cfg.BlockSize, "block-size", cfg.BlockSize, "block size for --mode=buffered")
	flags.IntVar(&cfg.CacheBlocks, "cache-blocks", cfg.CacheBlocks, "number of blocks to cache for --mode=buffered")
}

// seekFile is a MutFile that seeks an *os.File before every read or
// write.
type seekFile struct {
	*diskio.SeekReadWriter[int64]
	fh *os.File
}

var _ diskio.MutFile[int64] = seekFile{}

func (f seekFile) Name() string { return f.fh.Name() }
func (f seekFile) Close() error { return f.fh.Close() }

func (f seekFile) Size() int64 {
	fi, err := f.fh.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

// flockedFile is a LockedFile that also owns its lock file.
type flockedFile struct {
	*diskio.LockedFile[int64]
	lock *xsync.FileLock
}

func (f flockedFile) Close() error {
	var errs derror.MultiError
	if err := f.LockedFile.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := f.lock.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Open opens 'name' according to cfg.Mode.
func (cfg openConfig) Open(ctx context.Context, name string, flag int, perm fs.FileMode) (diskio.File[int64], error) {
	ctx = dlog.WithField(ctx, "diskio.file", name)
	ctx = dlog.WithField(ctx, "diskio.mode", cfg.Mode.String())
	dlog.Debugf(ctx, "opening...")

	switch cfg.Mode {
	case modeOS:
		return diskio.OpenFile[int64](ctx, name, flag, perm)
	case modeSeek, modeLocked:
		var lock diskio.Lock = diskio.LockerLock{Locker: new(sync.Mutex)}
		var flock *xsync.FileLock
		if cfg.Mode == modeLocked {
			var err error
			flock, err = xsync.NewFileLock(name + ".lock")
			if err != nil {
				return nil, err
			}
			lock = flock
		}
		fh, err := os.OpenFile(name, flag, perm)
		if err != nil {
			if flock != nil {
				_ = flock.Close()
			}
			return nil, err
		}
		file := diskio.NewLockedFile[int64](ctx, seekFile{
			SeekReadWriter: diskio.NewSeekReadWriter[int64](fh),
			fh:             fh,
		}, lock)
		if flock != nil {
			return flockedFile{LockedFile: file, lock: flock}, nil
		}
		return file, nil
	case modeBuffered:
		inner, err := diskio.OpenFile[int64](ctx, name, flag, perm)
		if err != nil {
			return nil, err
		}
		return diskio.NewBufferedFile[int64](ctx, inner, cfg.BlockSize, cfg.CacheBlocks), nil
	default:
		return nil, fmt.Errorf("invalid mode: %#v", cfg.Mode)
	}
}
