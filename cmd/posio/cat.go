// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
	"git.lukeshu.com/posio/lib/textui"
)

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "cat [OFFSET [LENGTH]]",
			Short: "Write LENGTH bytes starting at OFFSET to stdout",
			Long: "" +
				"Write LENGTH bytes starting at OFFSET to stdout.  OFFSET defaults to 0, " +
				"and LENGTH defaults to the rest of the file.  It is an error for the " +
				"file to end before LENGTH bytes have been written.",
			Args: cliutil.WrapPositionalArgs(cobra.RangeArgs(0, 2)),
		},
		RunE: func(file diskio.File[int64], cmd *cobra.Command, args []string) (err error) {
			off, length, err := parseExtent(file, args)
			if err != nil {
				return err
			}
			out := bufio.NewWriter(os.Stdout)
			defer func() {
				if _err := out.Flush(); _err != nil && err == nil {
					err = _err
				}
			}()
			return copyOut(cmd, file, out, off, length)
		},
	})
}

// parseExtent parses the optional "[OFFSET [LENGTH]]" arguments.
func parseExtent(file diskio.File[int64], args []string) (off, length int64, err error) {
	if len(args) > 0 {
		off, err = strconv.ParseInt(args[0], 0, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset: %w", err)
		}
	}
	if len(args) > 1 {
		length, err = strconv.ParseInt(args[1], 0, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid length: %w", err)
		}
		if length < 0 {
			return 0, 0, fmt.Errorf("invalid length: %v", length)
		}
	} else {
		length = file.Size() - off
		if length < 0 {
			length = 0
		}
	}
	return off, length, nil
}

func copyOut(cmd *cobra.Command, file diskio.File[int64], out *bufio.Writer, off, length int64) error {
	ctx := cmd.Context()
	buf := make([]byte, textui.Tunable(64*1024))
	for length > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk := buf
		if int64(len(chunk)) > length {
			chunk = chunk[:length]
		}
		if err := diskio.ReadFullAt[int64](file, chunk, off); err != nil {
			return fmt.Errorf("read %v at %v: %w", len(chunk), off, err)
		}
		if _, err := out.Write(chunk); err != nil {
			return err
		}
		off += int64(len(chunk))
		length -= int64(len(chunk))
	}
	return nil
}
