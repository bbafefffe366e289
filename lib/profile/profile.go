// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package profile adds command-line flags for writing Go runtime
// profiles to files.
package profile

import (
	"io"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/datawire/dlib/derror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type StopFunc = func() error

type startFunc = func(io.Writer) (StopFunc, error)

func startCPU(w io.Writer) (StopFunc, error) {
	if err := pprof.StartCPUProfile(w); err != nil {
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		return nil
	}, nil
}

func startTrace(w io.Writer) (StopFunc, error) {
	if err := trace.Start(w); err != nil {
		return nil, err
	}
	return func() error {
		trace.Stop()
		return nil
	}, nil
}

// startNamed writes the named profile at shutdown rather than at
// start, so that it covers the whole run.
func startNamed(name string) startFunc {
	return func(w io.Writer) (StopFunc, error) {
		return func() error {
			if prof := pprof.Lookup(name); prof != nil {
				return prof.WriteTo(w, 0)
			}
			return nil
		}, nil
	}
}

type profiler struct {
	stops []StopFunc
}

func (p *profiler) stop() error {
	var errs derror.MultiError
	for i := len(p.stops) - 1; i >= 0; i-- {
		if err := p.stops[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.stops = nil
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type flagValue struct {
	parent   *profiler
	start    startFunc
	filename string
}

var _ pflag.Value = (*flagValue)(nil)

// String implements pflag.Value.
func (fv *flagValue) String() string { return fv.filename }

// Type implements pflag.Value.
func (*flagValue) Type() string { return "filename" }

// Set implements pflag.Value.
func (fv *flagValue) Set(filename string) error {
	if filename == "" {
		return nil
	}
	fh, err := os.Create(filename)
	if err != nil {
		return err
	}
	stop, err := fv.start(fh)
	if err != nil {
		_ = fh.Close()
		return err
	}
	fv.filename = filename
	fv.parent.stops = append(fv.parent.stops, func() error {
		err := stop()
		if cErr := fh.Close(); err == nil {
			err = cErr
		}
		return err
	})
	return nil
}

var flags = []struct {
	name  string
	start startFunc
	usage string
}{
	{"cpu", startCPU, "write a CPU profile to the file `cpu.pprof`"},
	{"trace", startTrace, "write a runtime trace to the file `trace.out`"},
	{"goroutine", startNamed("goroutine"), "write a goroutine profile to the file `goroutine.pprof`"},
	{"heap", startNamed("heap"), "write a heap profile to the file `heap.pprof`"},
	{"allocs", startNamed("allocs"), "write an allocs profile to the file `allocs.pprof`"},
	{"block", startNamed("block"), "write a block profile to the file `block.pprof`"},
	{"mutex", startNamed("mutex"), "write a mutex profile to the file `mutex.pprof`"},
}

// AddProfileFlags adds a "PREFIX${name}" flag to flagset for each
// supported profile, and returns a function that must be called at
// program shutdown to finish writing whichever profiles were
// requested.
func AddProfileFlags(flagset *pflag.FlagSet, prefix string) StopFunc {
	p := new(profiler)
	for _, f := range flags {
		flagset.Var(&flagValue{parent: p, start: f.start}, prefix+f.name, f.usage)
		_ = cobra.MarkFlagFilename(flagset, prefix+f.name)
	}
	return p.stop
}
