// Copyright (C) 2022-2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package containers

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// LRUCache is a typed wrapper around a thread-safe
// least-recently-used cache.  A zero LRUCache is not usable; it must
// be initialized with NewLRUCache.
type LRUCache[K comparable, V any] struct {
	inner *lru.Cache
}

// NewLRUCache returns a cache that holds up to 'size' entries.  If
// 'onEvict' is non-nil, it is called (synchronously, by whichever
// method caused it) with each entry that is evicted or removed.
//
// It is invalid (runtime-panic) to call NewLRUCache with a
// non-positive size.
func NewLRUCache[K comparable, V any](size int, onEvict func(K, V)) *LRUCache[K, V] {
	var untypedOnEvict func(key, value any)
	if onEvict != nil {
		untypedOnEvict = func(key, value any) {
			//nolint:forcetypeassert // Typed wrapper around untyped lib.
			onEvict(key.(K), value.(V))
		}
	}
	inner, err := lru.NewWithEvict(size, untypedOnEvict)
	if err != nil {
		panic(fmt.Errorf("containers.NewLRUCache: %w", err))
	}
	return &LRUCache[K, V]{inner: inner}
}

func (c *LRUCache[K, V]) Add(key K, value V) {
	c.inner.Add(key, value)
}

func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	_value, ok := c.inner.Get(key)
	if ok {
		//nolint:forcetypeassert // Typed wrapper around untyped lib.
		value = _value.(V)
	}
	return value, ok
}

func (c *LRUCache[K, V]) Keys() []K {
	untyped := c.inner.Keys()
	typed := make([]K, len(untyped))
	for i := range untyped {
		//nolint:forcetypeassert // Typed wrapper around untyped lib.
		typed[i] = untyped[i].(K)
	}
	return typed
}

func (c *LRUCache[K, V]) Peek(key K) (value V, ok bool) {
	_value, ok := c.inner.Peek(key)
	if ok {
		//nolint:forcetypeassert // Typed wrapper around untyped lib.
		value = _value.(V)
	}
	return value, ok
}

// Purge removes every entry, calling onEvict for each.
func (c *LRUCache[K, V]) Purge() {
	c.inner.Purge()
}
