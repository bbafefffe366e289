// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package fusefile exposes a single diskio.File as a FUSE filesystem
// containing one regular file, so that ordinary programs can do
// positional I/O on it through the kernel.
package fusefile

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"time"

	"git.lukeshu.com/go/typedsync"
	"github.com/datawire/dlib/dcontext"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"git.lukeshu.com/posio/lib/diskio"
)

// FileInodeID is the inode number of the one file; the root
// directory is fuseops.RootInodeID.
const FileInodeID fuseops.InodeID = fuseops.RootInodeID + 1

// Flusher is implemented by files that buffer writes, such as
// *diskio.BufferedFile.
type Flusher interface {
	Flush() error
}

// Syncer is implemented by files that can be synced to stable
// storage, such as *diskio.OSFile.
type Syncer interface {
	Sync() error
}

type fileState struct {
	writable bool
}

// FS is a fuseutil.FileSystem with a root directory containing a
// single entry, Name, backed by File.
type FS struct {
	File     diskio.File[int64]
	Name     string
	ReadOnly bool

	fuseutil.NotImplementedFileSystem
	mtime       time.Time
	lastHandle  uint64
	dirHandles  typedsync.Map[fuseops.HandleID, struct{}]
	fileHandles typedsync.Map[fuseops.HandleID, *fileState]
}

func New(file diskio.File[int64], name string, readOnly bool) *FS {
	return &FS{
		File:     file,
		Name:     name,
		ReadOnly: readOnly,
		mtime:    time.Now(),
	}
}

// Mount mounts the FS at 'mountpoint', and serves it until 'ctx' is
// canceled.
func (fs *FS) Mount(ctx context.Context, mountpoint string) error {
	cfg := &fuse.MountConfig{
		FSName:  fs.File.Name(),
		Subtype: "posio",

		ReadOnly: fs.ReadOnly,
	}
	return fuseMount(ctx, mountpoint, fuseutil.NewFileSystemServer(fs), cfg)
}

func fuseMount(ctx context.Context, mountpoint string, server fuse.Server, cfg *fuse.MountConfig) error {
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		// Allow mountHandle.Join() returning to cause the
		// "unmount" goroutine to quit.
		ShutdownOnNonError: true,
	})
	var mounted atomic.Bool
	mounted.Store(true)
	grp.Go("unmount", func(ctx context.Context) error {
		<-ctx.Done()
		var err error
		var gotNil bool
		// Keep retrying, because the FS might be busy.
		for mounted.Load() {
			if _err := fuse.Unmount(mountpoint); _err == nil {
				gotNil = true
			} else if !gotNil {
				err = _err
			}
		}
		if gotNil {
			return nil
		}
		return err
	})
	grp.Go("mount", func(ctx context.Context) error {
		defer mounted.Store(false)

		cfg.OpContext = ctx
		cfg.ErrorLogger = dlog.StdLogger(ctx, dlog.LogLevelError)
		cfg.DebugLogger = dlog.StdLogger(ctx, dlog.LogLevelDebug)

		mountHandle, err := fuse.Mount(mountpoint, server, cfg)
		if err != nil {
			return err
		}
		dlog.Infof(ctx, "mounted %q", mountpoint)
		return mountHandle.Join(dcontext.HardContext(ctx))
	})
	return grp.Wait()
}

func (fs *FS) newHandle() fuseops.HandleID {
	return fuseops.HandleID(atomic.AddUint64(&fs.lastHandle, 1))
}

func (fs *FS) dirAttributes() fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Nlink: 2, //nolint:gomnd // "." and the parent's entry
		Mode:  uint32(syscall.S_IFDIR | 0o555),
		Atime: fs.mtime,
		Mtime: fs.mtime,
		Ctime: fs.mtime,
	}
}

func (fs *FS) fileAttributes() fuseops.InodeAttributes {
	perm := uint32(0o644)
	if fs.ReadOnly {
		perm = 0o444
	}
	return fuseops.InodeAttributes{
		Size:  uint64(fs.File.Size()),
		Nlink: 1,
		Mode:  uint32(syscall.S_IFREG) | perm,
		Atime: fs.mtime,
		Mtime: fs.mtime,
		Ctime: fs.mtime,
	}
}

func (fs *FS) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	const blockSize = 4096
	op.IoSize = blockSize
	op.BlockSize = blockSize
	op.Blocks = (uint64(fs.File.Size()) + blockSize - 1) / blockSize
	op.Inodes = 2
	op.InodesFree = 0
	return nil
}

func (fs *FS) LookUpInode(_ context.Context, op *fuseops.LookUpInodeOp) error {
	if op.Parent != fuseops.RootInodeID || op.Name != fs.Name {
		return syscall.ENOENT
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:      FileInodeID,
		Attributes: fs.fileAttributes(),
	}
	return nil
}

func (fs *FS) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	switch op.Inode {
	case fuseops.RootInodeID:
		op.Attributes = fs.dirAttributes()
	case FileInodeID:
		op.Attributes = fs.fileAttributes()
	default:
		return syscall.ENOENT
	}
	return nil
}

// SetInodeAttributes only permits "changing" the size to what it
// already is; a diskio.File can't be truncated.
func (fs *FS) SetInodeAttributes(_ context.Context, op *fuseops.SetInodeAttributesOp) error {
	if op.Inode != FileInodeID {
		return syscall.EPERM
	}
	if op.Size != nil && *op.Size != uint64(fs.File.Size()) {
		return syscall.EPERM
	}
	op.Attributes = fs.fileAttributes()
	return nil
}

func (fs *FS) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	if op.Inode != fuseops.RootInodeID {
		return syscall.ENOTDIR
	}
	handle := fs.newHandle()
	fs.dirHandles.Store(handle, struct{}{})
	op.Handle = handle
	return nil
}

func (fs *FS) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	if _, ok := fs.dirHandles.Load(op.Handle); !ok {
		return syscall.EBADF
	}
	if op.Offset > 0 {
		return nil
	}
	op.BytesRead += fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
		Offset: 1,
		Inode:  FileInodeID,
		Name:   fs.Name,
		Type:   fuseutil.DT_File,
	})
	return nil
}

func (fs *FS) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	if _, ok := fs.dirHandles.LoadAndDelete(op.Handle); !ok {
		return syscall.EBADF
	}
	return nil
}

func (fs *FS) OpenFile(_ context.Context, op *fuseops.OpenFileOp) error {
	if op.Inode != FileInodeID {
		return syscall.EISDIR
	}
	handle := fs.newHandle()
	fs.fileHandles.Store(handle, &fileState{
		writable: !fs.ReadOnly,
	})
	op.Handle = handle
	op.KeepPageCache = true
	return nil
}

func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	if _, ok := fs.fileHandles.Load(op.Handle); !ok {
		return syscall.EBADF
	}

	var dat []byte
	if op.Dst != nil {
		size := op.Size
		if int64(len(op.Dst)) < size {
			size = int64(len(op.Dst))
		}
		dat = op.Dst[:size]
	} else {
		dat = make([]byte, op.Size)
		op.Data = [][]byte{dat}
	}

	// The kernel wants a full buffer unless we're at EOF.
	n, err := readUpTo(fs.File, dat, op.Offset)
	op.BytesRead = n
	if err != nil {
		dlog.Errorf(dlog.WithField(ctx, "fusefile.op", "read"), "off=%v: %v", op.Offset, err)
		return syscall.EIO
	}
	return nil
}

func readUpTo(file diskio.File[int64], dat []byte, off int64) (int, error) {
	size := file.Size()
	if off >= size {
		return 0, nil
	}
	if room := size - off; int64(len(dat)) > room {
		dat = dat[:room]
	}
	if err := diskio.ReadFullAt[int64](file, dat, off); err != nil {
		return 0, err
	}
	return len(dat), nil
}

func (fs *FS) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	state, ok := fs.fileHandles.Load(op.Handle)
	if !ok {
		return syscall.EBADF
	}
	if !state.writable {
		return syscall.EROFS
	}
	if err := diskio.WriteFullAt[int64](fs.File, op.Data, op.Offset); err != nil {
		dlog.Errorf(dlog.WithField(ctx, "fusefile.op", "write"), "off=%v: %v", op.Offset, err)
		if errors.Is(err, diskio.ErrNegativeOffset) {
			return syscall.EINVAL
		}
		return syscall.EIO
	}
	return nil
}

func (fs *FS) sync(ctx context.Context) error {
	if f, ok := fs.File.(Flusher); ok {
		if err := f.Flush(); err != nil {
			dlog.Error(dlog.WithField(ctx, "fusefile.op", "flush"), err)
			return syscall.EIO
		}
	}
	if f, ok := fs.File.(Syncer); ok {
		if err := f.Sync(); err != nil {
			dlog.Error(dlog.WithField(ctx, "fusefile.op", "sync"), err)
			return syscall.EIO
		}
	}
	return nil
}

func (fs *FS) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	if _, ok := fs.fileHandles.Load(op.Handle); !ok {
		return syscall.EBADF
	}
	return fs.sync(ctx)
}

func (fs *FS) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	if _, ok := fs.fileHandles.Load(op.Handle); !ok {
		return syscall.EBADF
	}
	return fs.sync(ctx)
}

func (fs *FS) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	if _, ok := fs.fileHandles.LoadAndDelete(op.Handle); !ok {
		return syscall.EBADF
	}
	return nil
}
