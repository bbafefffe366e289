// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command posio does positional I/O on files, through any of the
// access strategies that lib/diskio provides.
package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/profile"
	"git.lukeshu.com/posio/lib/textui"
)

type subcommand struct {
	cobra.Command
	// Writable subcommands open --file read-write.
	Writable bool
	RunE     func(file diskio.File[int64], cmd *cobra.Command, args []string) error
}

var subcommands []subcommand

// openCfg is shared by every subcommand, for --file and for any other
// files that the subcommand opens.
var openCfg = openConfig{
	Mode:        modeOS,
	BlockSize:   textui.Tunable[int64](64 * 1024),
	CacheBlocks: textui.Tunable(64),
}

func main() {
	logLevelFlag := textui.LogLevelFlag{
		Level: dlog.LogLevelInfo,
	}
	var fileFlag string

	argparser := &cobra.Command{
		Use:   "posio {[flags]|SUBCOMMAND}",
		Short: "Do positional I/O on a file",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
		SilenceUsage:  true, // our FlagErrorFunc will handle it

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(&logLevelFlag, "verbosity", "set the verbosity")
	argparser.PersistentFlags().StringVar(&fileFlag, "file", "", "operate on the file `filename`")
	if err := argparser.MarkPersistentFlagFilename("file"); err != nil {
		panic(err)
	}
	if err := argparser.MarkPersistentFlagRequired("file"); err != nil {
		panic(err)
	}
	openCfg.AddFlags(argparser.PersistentFlags())
	stopProfiling := profile.AddProfileFlags(argparser.PersistentFlags(), "pprof.")

	for _, child := range subcommands {
		cmd := child.Command
		runE := child.RunE
		openFlag := os.O_RDONLY
		if child.Writable {
			openFlag = os.O_RDWR
		}
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := textui.NewLogger(os.Stderr, logLevelFlag.Level)
			ctx = dlog.WithLogger(ctx, logger)
			ctx = dlog.WithField(ctx, "posio.cmd", cmd.Name())
			dlog.SetFallbackLogger(logger.WithField("posio.THIS_IS_A_BUG", true))

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})
			grp.Go("main", func(ctx context.Context) (err error) {
				maybeSetErr := func(_err error) {
					if _err != nil && err == nil {
						err = _err
					}
				}
				defer func() {
					maybeSetErr(stopProfiling())
				}()
				file, err := openCfg.Open(ctx, fileFlag, openFlag, 0)
				if err != nil {
					return err
				}
				defer func() {
					maybeSetErr(file.Close())
				}()

				cmd.SetContext(ctx)
				return runE(file, cmd, args)
			})
			return grp.Wait()
		}
		argparser.AddCommand(&cmd)
	}

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
