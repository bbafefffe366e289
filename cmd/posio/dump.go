// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/textui"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "dump [OFFSET [LENGTH]]",
			Short: "Hexdump LENGTH bytes starting at OFFSET",
			Args:  cliutil.WrapPositionalArgs(cobra.RangeArgs(0, 2)),
		},
		RunE: func(file diskio.File[int64], _ *cobra.Command, args []string) error {
			off, length, err := parseExtent(file, args)
			if err != nil {
				return err
			}
			dat := make([]byte, length)
			if err := diskio.ReadFullAt[int64](file, dat, off); err != nil {
				return err
			}

			spew := spew.NewDefaultConfig()
			spew.DisablePointerAddresses = true

			textui.Fprintf(os.Stdout, "%s[%v:%v] = ", file.Name(), off, off+length)
			spew.Fdump(os.Stdout, dat)
			return nil
		},
	})
}
