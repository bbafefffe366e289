// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/textui"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "write OFFSET",
			Short: "Copy stdin into the file, starting at OFFSET",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		Writable: true,
		RunE: func(file diskio.File[int64], cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			off, err := strconv.ParseInt(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid offset: %w", err)
			}
			sf := diskio.NewStatefulFile[int64](file)
			if _, err := sf.Seek(off, io.SeekStart); err != nil {
				return err
			}
			n, err := io.Copy(sf, os.Stdin)
			dlog.Infof(ctx, "wrote %v", textui.IEC(n, "B"))
			if err != nil {
				return err
			}
			if f, ok := file.(interface{ Flush() error }); ok {
				return f.Flush()
			}
			return nil
		},
	})
}
