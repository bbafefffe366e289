// Copyright (C) 2019-2022  Ambassador Labs
// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: Apache-2.0
//
// Contains code based on:
// https://github.com/datawire/dlib/blob/b09ab2e017e16d261f05fff5b3b860d645e774d4/dlog/logger_logrus.go
// https://github.com/datawire/dlib/blob/b09ab2e017e16d261f05fff5b3b860d645e774d4/dlog/logger_testing.go
// https://github.com/telepresenceio/telepresence/blob/ece94a40b00a90722af36b12e40f91cbecc0550c/pkg/log/formatter.go

package textui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"git.lukeshu.com/go/typedsync"
	"github.com/datawire/dlib/dlog"
	"github.com/spf13/pflag"
)

// logLevels is ordered from least to most verbose.
var logLevels = []struct {
	Level   dlog.LogLevel
	Name    string
	Aliases []string
	Abbr    string
}{
	{dlog.LogLevelError, "error", nil, "ERR"},
	{dlog.LogLevelWarn, "warn", []string{"warning"}, "WRN"},
	{dlog.LogLevelInfo, "info", nil, "INF"},
	{dlog.LogLevelDebug, "debug", nil, "DBG"},
	{dlog.LogLevelTrace, "trace", nil, "TRC"},
}

// LogLevelFlag is a pflag.Value for choosing a dlog.LogLevel by name.
type LogLevelFlag struct {
	Level dlog.LogLevel
}

var _ pflag.Value = (*LogLevelFlag)(nil)

// Type implements pflag.Value.
func (lvl *LogLevelFlag) Type() string { return "loglevel" }

// Set implements pflag.Value.
func (lvl *LogLevelFlag) Set(str string) error {
	for _, l := range logLevels {
		if strings.EqualFold(str, l.Name) || slices.ContainsFunc(l.Aliases, func(alias string) bool {
			return strings.EqualFold(str, alias)
		}) {
			lvl.Level = l.Level
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %q", str)
}

// String implements pflag.Value.
func (lvl *LogLevelFlag) String() string {
	for _, l := range logLevels {
		if l.Level == lvl.Level {
			return l.Name
		}
	}
	panic(fmt.Errorf("invalid log level: %#v", lvl.Level))
}

type logger struct {
	parent *logger
	out    io.Writer
	lvl    dlog.LogLevel

	// only valid if parent is non-nil
	fieldKey string
	fieldVal any
}

var _ dlog.OptimizedLogger = (*logger)(nil)

func NewLogger(out io.Writer, lvl dlog.LogLevel) dlog.Logger {
	return &logger{
		out: out,
		lvl: lvl,
	}
}

// Helper implements dlog.Logger.
func (l *logger) Helper() {}

// WithField implements dlog.Logger.
func (l *logger) WithField(key string, value any) dlog.Logger {
	return &logger{
		parent: l,
		out:    l.out,
		lvl:    l.lvl,

		fieldKey: key,
		fieldVal: value,
	}
}

type logWriter struct {
	log *logger
	lvl dlog.LogLevel
}

// Write implements io.Writer.
func (lw logWriter) Write(data []byte) (int, error) {
	lw.log.log(lw.lvl, func(w io.Writer) {
		_, _ = w.Write(data)
	})
	return len(data), nil
}

// StdLogger implements dlog.Logger.
func (l *logger) StdLogger(lvl dlog.LogLevel) *log.Logger {
	return log.New(logWriter{log: l, lvl: lvl}, "", 0)
}

// Log implements dlog.Logger.
func (l *logger) Log(lvl dlog.LogLevel, msg string) {
	panic("should not happen: optimized log methods should be used instead")
}

// UnformattedLog implements dlog.OptimizedLogger.
func (l *logger) UnformattedLog(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = printer.Fprint(w, args...)
	})
}

// UnformattedLogln implements dlog.OptimizedLogger.
func (l *logger) UnformattedLogln(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = printer.Fprintln(w, args...)
	})
}

// UnformattedLogf implements dlog.OptimizedLogger.
func (l *logger) UnformattedLogf(lvl dlog.LogLevel, format string, args ...any) {
	l.log(lvl, func(w io.Writer) {
		_, _ = printer.Fprintf(w, format, args...)
	})
}

var (
	logBufPool = typedsync.Pool[*bytes.Buffer]{
		New: func() *bytes.Buffer {
			return new(bytes.Buffer)
		},
	}
	logMu      sync.Mutex
	thisModDir string
)

func init() {
	//nolint:dogsled // I can't change the signature of the stdlib.
	_, file, _, _ := runtime.Caller(0)
	thisModDir = filepath.Dir(filepath.Dir(filepath.Dir(file)))
}

func (l *logger) log(lvl dlog.LogLevel, writeMsg func(io.Writer)) {
	// boilerplate /////////////////////////////////////////////////////////
	if lvl > l.lvl {
		return
	}
	logBuf, _ := logBufPool.Get()
	defer logBufPool.Put(logBuf)
	defer logBuf.Reset()

	// time ////////////////////////////////////////////////////////////////
	now := time.Now()
	const timeFmt = "15:04:05.0000"
	logBuf.WriteString(timeFmt)
	now.AppendFormat(logBuf.Bytes()[:0], timeFmt)

	// level ///////////////////////////////////////////////////////////////
	for _, level := range logLevels {
		if level.Level == lvl {
			logBuf.WriteString(" " + level.Abbr)
			break
		}
	}

	// fields (early) //////////////////////////////////////////////////////
	fieldKeys, fieldVals := l.fields()
	nextField := len(fieldKeys)
	for i, fieldKey := range fieldKeys {
		if logFieldFor(fieldKey).Ord >= 0 {
			nextField = i
			break
		}
		writeField(logBuf, fieldKey, fieldVals[fieldKey])
	}

	// message /////////////////////////////////////////////////////////////
	logBuf.WriteString(" : ")
	writeMsg(logBuf)

	// fields (late) ///////////////////////////////////////////////////////
	if nextField < len(fieldKeys) {
		logBuf.WriteString(" :")
	}
	for _, fieldKey := range fieldKeys[nextField:] {
		writeField(logBuf, fieldKey, fieldVals[fieldKey])
	}

	// caller //////////////////////////////////////////////////////////////
	const (
		thisModule             = "git.lukeshu.com/posio"
		thisPackage            = "git.lukeshu.com/posio/lib/textui"
		maximumCallerDepth int = 25
		minimumCallerDepth int = 3 // runtime.Callers + .log + .Log
	)
	var pcs [maximumCallerDepth]uintptr
	depth := runtime.Callers(minimumCallerDepth, pcs[:])
	frames := runtime.CallersFrames(pcs[:depth])
	for f, again := frames.Next(); again; f, again = frames.Next() {
		if !strings.HasPrefix(f.Function, thisModule+"/") {
			continue
		}
		if strings.HasPrefix(f.Function, thisPackage+".") {
			continue
		}
		if nextField == len(fieldKeys) {
			logBuf.WriteString(" :")
		}
		file := f.File[strings.LastIndex(f.File, thisModDir+"/")+len(thisModDir+"/"):]
		fmt.Fprintf(logBuf, " (from %s:%d)", file, f.Line)
		break
	}

	// boilerplate /////////////////////////////////////////////////////////
	logBuf.WriteByte('\n')

	logMu.Lock()
	_, _ = l.out.Write(logBuf.Bytes())
	logMu.Unlock()
}

// fields returns the logger's field keys in display order, and the
// innermost value for each key.
func (l *logger) fields() ([]string, map[string]any) {
	vals := make(map[string]any)
	var keys []string
	for f := l; f.parent != nil; f = f.parent {
		if _, exists := vals[f.fieldKey]; exists {
			continue
		}
		vals[f.fieldKey] = f.fieldVal
		keys = append(keys, f.fieldKey)
	}
	sort.Slice(keys, func(i, j int) bool {
		iOrd := logFieldFor(keys[i]).Ord
		jOrd := logFieldFor(keys[j]).Ord
		if iOrd != jOrd {
			return iOrd < jOrd
		}
		return keys[i] < keys[j]
	})
	return keys, vals
}

// logField says where a field goes in a log line and how it is
// written.  Fields with a negative Ord go to the left of the message,
// lowest first; the rest go to the right.
type logField struct {
	Ord int
	// Render writes the already-quoted value; if nil, the field
	// is written as " Name=val".
	Render func(w io.Writer, val []byte)
	Name   string
}

var logFields = map[string]logField{
	"THREAD": { // dgroup
		Ord: -99,
		Render: func(w io.Writer, val []byte) {
			if len(val) == 0 || bytes.Equal(val, []byte("/main")) {
				return
			}
			val = bytes.TrimPrefix(val, []byte("/main/"))
			val = bytes.TrimPrefix(val, []byte("/"))
			fmt.Fprintf(w, " thread=%s", val)
		},
	},

	"posio.cmd": {
		Ord: -50,
		Render: func(w io.Writer, val []byte) {
			fmt.Fprintf(w, " [%s]", val)
		},
	},
	"posio.copy.step": {
		Ord: -20,
		Render: func(w io.Writer, val []byte) {
			fmt.Fprintf(w, "/%s", val)
		},
	},
	"posio.copy.worker":  {Ord: -19, Name: "worker"},
	"posio.grep.pattern": {Ord: -10, Name: "pattern"},
	"fusefile.op":        {Ord: -5, Name: "op"},

	"diskio.file": {Ord: -2, Name: "file"},
	"diskio.mode": {Ord: -1, Name: "mode"},
}

func logFieldFor(key string) logField {
	if field, ok := logFields[key]; ok {
		return field
	}
	return logField{Ord: 1, Name: key}
}

func writeField(w io.Writer, key string, val any) {
	valBuf, _ := logBufPool.Get()
	defer func() {
		// The wrapper `func()` is important to defer
		// evaluating `valBuf`, since we might re-assign it
		// below.
		valBuf.Reset()
		logBufPool.Put(valBuf)
	}()
	_, _ = printer.Fprint(valBuf, val)
	if needsQuote(valBuf.Bytes()) {
		valBuf2, _ := logBufPool.Get()
		fmt.Fprintf(valBuf2, "%q", valBuf.Bytes())
		valBuf.Reset()
		logBufPool.Put(valBuf)
		valBuf = valBuf2
	}

	field := logFieldFor(key)
	if field.Render != nil {
		field.Render(w, valBuf.Bytes())
		return
	}
	fmt.Fprintf(w, " %s=%s", field.Name, valBuf.Bytes())
}

func needsQuote(val []byte) bool {
	if bytes.HasPrefix(val, []byte(`"`)) {
		return true
	}
	for _, r := range val {
		if !(unicode.IsPrint(rune(r)) && r != ' ') {
			return true
		}
	}
	return false
}
