// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"os"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/textui"
)

func init() {
	var maxCount int
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "grep PATTERN",
			Short: "Print the offset of every occurrence of the bytes PATTERN",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(file diskio.File[int64], cmd *cobra.Command, args []string) (err error) {
			ctx := dlog.WithField(cmd.Context(), "posio.grep.pattern", args[0])
			out := bufio.NewWriter(os.Stdout)
			defer func() {
				if _err := out.Flush(); _err != nil && err == nil {
					err = _err
				}
			}()

			var cnt int
			err = diskio.IndexAllFunc[int64, byte](
				&diskio.ReaderAtSequence[int64]{
					R:       file,
					BufSize: textui.Tunable(64 * 1024),
				},
				diskio.StringSequence[int64](args[0]),
				func(pos int64) bool {
					if ctx.Err() != nil {
						return false
					}
					textui.Fprintf(out, "%v\n", pos)
					cnt++
					return maxCount <= 0 || cnt < maxCount
				})
			if err != nil {
				return err
			}
			dlog.Infof(ctx, "%v matches", cnt)
			return ctx.Err()
		},
	}
	cmd.Flags().IntVarP(&maxCount, "max-count", "m", 0, "stop after `num` matches; 0 for no limit")
	subcommands = append(subcommands, cmd)
}
