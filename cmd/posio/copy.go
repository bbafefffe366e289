// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"git.lukeshu.com/go/typedsync"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/textui"
)

type copyStats struct {
	Portion textui.Portion[int64]
}

func (s copyStats) String() string {
	return textui.Sprintf("copied %v of %v",
		s.Portion,
		textui.IEC(s.Portion.D, "B"))
}

func init() {
	var jobs int
	var chunkSize int64
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "copy DST",
			Short: "Copy the file to DST, using several goroutines at once",
			Long: "" +
				"Copy the file to DST.  The copy is split in to --chunk-size chunks, " +
				"and --jobs goroutines each copy a chunk at a time using positional " +
				"I/O on both files.  DST is opened with the same --mode as the source.",
			Args: cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(src diskio.File[int64], cmd *cobra.Command, args []string) error {
			return copyTo(cmd.Context(), openCfg, args[0], src, jobs, chunkSize)
		},
	}
	cmd.Flags().IntVar(&jobs, "jobs", runtime.NumCPU(), "number of goroutines to copy with")
	cmd.Flags().Int64Var(&chunkSize, "chunk-size", textui.Tunable[int64](1024*1024), "number of bytes for each goroutine to copy at a time")
	subcommands = append(subcommands, cmd)
}

// copyTo replaces the contents of the file 'dstName' with the
// contents of 'src'.
func copyTo(ctx context.Context, cfg openConfig, dstName string, src diskio.File[int64], jobs int, chunkSize int64) (err error) {
	dst, err := cfg.Open(ctx, dstName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer func() {
		if _err := dst.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	return parallelCopy(ctx, dst, src, jobs, chunkSize)
}

func parallelCopy(ctx context.Context, dst, src diskio.File[int64], jobs int, chunkSize int64) error {
	if jobs < 1 {
		return fmt.Errorf("invalid --jobs: %v", jobs)
	}
	if chunkSize < 1 {
		return fmt.Errorf("invalid --chunk-size: %v", chunkSize)
	}
	size := src.Size()

	ctx = dlog.WithField(ctx, "posio.copy.step", "copy")
	progress := textui.NewProgress[copyStats](ctx, dlog.LogLevelInfo, textui.Tunable(1*time.Second))
	var done atomic.Int64
	progress.Set(copyStats{Portion: textui.Portion[int64]{D: size}})

	var bufPool typedsync.Pool[[]byte]

	chunks := make(chan int64)
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{})
	grp.Go("feed", func(ctx context.Context) error {
		defer close(chunks)
		for off := int64(0); off < size; off += chunkSize {
			select {
			case chunks <- off:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < jobs; i++ {
		worker := i
		grp.Go(fmt.Sprintf("worker-%d", worker), func(ctx context.Context) error {
			ctx = dlog.WithField(ctx, "posio.copy.worker", worker)
			buf, ok := bufPool.Get()
			if !ok || int64(cap(buf)) < chunkSize {
				buf = make([]byte, chunkSize)
			}
			defer bufPool.Put(buf)
			for off := range chunks {
				if err := ctx.Err(); err != nil {
					return err
				}
				chunk := buf[:chunkSize]
				if rest := size - off; rest < chunkSize {
					chunk = chunk[:rest]
				}
				if err := diskio.ReadFullAt[int64](src, chunk, off); err != nil {
					return fmt.Errorf("read %v at %v: %w", len(chunk), off, err)
				}
				if err := diskio.WriteFullAt[int64](dst, chunk, off); err != nil {
					return fmt.Errorf("write %v at %v: %w", len(chunk), off, err)
				}
				dlog.Tracef(ctx, "copied %v at %v", len(chunk), off)
				progress.Set(copyStats{Portion: textui.Portion[int64]{
					N: done.Add(int64(len(chunk))),
					D: size,
				}})
			}
			return nil
		})
	}
	err := grp.Wait()
	progress.Done()
	return err
}
