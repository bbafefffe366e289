// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"path/filepath"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/fusefile"
)

func init() {
	var name string
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "mount MOUNTPOINT",
			Short: "Mount a FUSE filesystem at MOUNTPOINT, containing just the file",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		Writable: true,
		RunE: func(file diskio.File[int64], cmd *cobra.Command, args []string) error {
			if name == "" {
				name = filepath.Base(file.Name())
			}
			return fusefile.New(file, name, false).Mount(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the file within the mount (default: the basename of --file)")
	subcommands = append(subcommands, cmd)

	var roName string
	roCmd := subcommand{
		Command: cobra.Command{
			Use:   "mount-ro MOUNTPOINT",
			Short: "Like mount, but read-only",
			Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		},
		RunE: func(file diskio.File[int64], cmd *cobra.Command, args []string) error {
			if roName == "" {
				roName = filepath.Base(file.Name())
			}
			return fusefile.New(file, roName, true).Mount(cmd.Context(), args[0])
		},
	}
	roCmd.Flags().StringVar(&roName, "name", "", "name of the file within the mount (default: the basename of --file)")
	subcommands = append(subcommands, roCmd)
}
