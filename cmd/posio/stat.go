// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"io"
	"os"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/posio/lib/diskio"
)

type fileStat struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mode string `json:"mode"`

	// Which of the optional interfaces the opened file
	// implements.
	FullReaderAt bool `json:"full_reader_at"`
	FullWriterAt bool `json:"full_writer_at"`
	Buffered     bool `json:"buffered"`
	Tainted      bool `json:"tainted"`
}

func statFile(file diskio.File[int64]) fileStat {
	_, fullR := file.(diskio.FullReaderAt[int64])
	_, fullW := file.(diskio.FullWriterAt[int64])
	_, buffered := file.(*diskio.BufferedFile[int64])
	tainted := false
	if t, ok := file.(interface{ Tainted() bool }); ok {
		tainted = t.Tainted()
	}
	return fileStat{
		Name:         file.Name(),
		Size:         file.Size(),
		Mode:         openCfg.Mode.String(),
		FullReaderAt: fullR,
		FullWriterAt: fullW,
		Buffered:     buffered,
		Tainted:      tainted,
	}
}

func writeJSON(w io.Writer, obj any) (err error) {
	buffer := bufio.NewWriter(w)
	defer func() {
		if _err := buffer.Flush(); err == nil && _err != nil {
			err = _err
		}
	}()
	if err := lowmemjson.NewEncoder(buffer).Encode(obj); err != nil {
		return err
	}
	_, err = buffer.WriteString("\n")
	return err
}

func init() {
	subcommands = append(subcommands, subcommand{
		Command: cobra.Command{
			Use:   "stat",
			Short: "Print information about the file as JSON",
			Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		},
		RunE: func(file diskio.File[int64], _ *cobra.Command, _ []string) error {
			return writeJSON(os.Stdout, statFile(file))
		},
	})
}
