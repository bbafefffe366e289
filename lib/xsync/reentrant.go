// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package xsync implements locks, beyond those in the standard
// library, that can serve as a diskio.Lock.
package xsync

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ReentrantMutex is a mutex that the goroutine holding it may Lock
// again; it is released when Unlock has been called as many times as
// Lock.  The zero value is an unlocked mutex.
//
// This is what lets a store that is wrapped in a diskio.Locked call
// back in to that same Locked without deadlocking.
type ReentrantMutex struct {
	mu sync.Mutex

	owner     atomic.Int64 // goroutine ID of the holder, or 0
	recursion int32        // only touched by the holder
}

var _ sync.Locker = (*ReentrantMutex)(nil)

func (m *ReentrantMutex) Lock() {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.recursion++
		return
	}
	m.mu.Lock()
	m.owner.Store(gid)
	m.recursion = 1
}

// Unlock panics if called by a goroutine other than the one holding
// the mutex.
func (m *ReentrantMutex) Unlock() {
	gid := goid.Get()
	if owner := m.owner.Load(); owner != gid {
		panic(fmt.Errorf("xsync.ReentrantMutex.Unlock: goroutine %v does not hold the lock (owner=%v)", gid, owner))
	}
	m.recursion--
	if m.recursion != 0 {
		return
	}
	m.owner.Store(0)
	m.mu.Unlock()
}

// Depth returns how many times the calling goroutine currently holds
// the mutex; 0 if it does not hold it.
func (m *ReentrantMutex) Depth() int {
	if m.owner.Load() != goid.Get() {
		return 0
	}
	return int(m.recursion)
}
