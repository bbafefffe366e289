// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package textui

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datawire/dlib/dlog"
)

// Stats is a snapshot of the state of some long-running operation.
type Stats interface {
	comparable
	fmt.Stringer
}

// Progress periodically logs the most recent Stats that it has been
// given, skipping the log line if nothing changed since the last
// tick.
type Progress[T Stats] struct {
	ctx      context.Context //nolint:containedctx // captured for the background goroutine
	lvl      dlog.LogLevel
	interval time.Duration

	cancel    context.CancelFunc
	startOnce sync.Once
	done      chan struct{}

	cur     atomic.Pointer[T]
	oldStat T
	oldLine string
}

func NewProgress[T Stats](ctx context.Context, lvl dlog.LogLevel, interval time.Duration) *Progress[T] {
	ctx, cancel := context.WithCancel(ctx)
	ret := &Progress[T]{
		ctx:      ctx,
		lvl:      lvl,
		interval: interval,

		cancel: cancel,
		done:   make(chan struct{}),
	}
	return ret
}

// Set updates the current value; the first call starts the
// background logger.
func (p *Progress[T]) Set(val T) {
	p.cur.Store(&val)
	p.startOnce.Do(func() { go p.run() })
}

// Done stops the background logger, emitting a final line if the
// value changed since the last tick.  It is safe to call Done even if
// Set was never called.
func (p *Progress[T]) Done() {
	p.cancel()
	p.startOnce.Do(func() { close(p.done) })
	<-p.done
}

func (p *Progress[T]) flush(force bool) {
	cur := *p.cur.Load()
	if !force && cur == p.oldStat {
		return
	}
	defer func() { p.oldStat = cur }()

	line := cur.String()
	if !force && line == p.oldLine {
		return
	}
	defer func() { p.oldLine = line }()

	dlog.Log(p.ctx, p.lvl, line)
}

func (p *Progress[T]) run() {
	defer close(p.done)
	p.flush(true)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			p.flush(false)
			return
		case <-ticker.C:
			p.flush(false)
		}
	}
}
