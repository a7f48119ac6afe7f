/*
 * cache.go, part of gocage.
 *
 * Copyright 2024 The gocage authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package cache keeps a single live instance per identity key for
// objects that are expensive to build. The cache holds weak pointers,
// so it never keeps an object alive by itself.
package cache

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"weak"
)

// ErrStructuralKey is returned when an object can't be given an identity key.
var ErrStructuralKey = errors.New("no structural key")

// Cache maps identity keys to the live instance built for that key.
// Each concrete type gets its own Cache.
type Cache[T any] struct {
	name    string
	mu      sync.Mutex
	entries map[string]weak.Pointer[T]
}

// New returns an empty cache. name is only used in error messages.
func New[T any](name string) *Cache[T] {
	return &Cache[T]{name: name, entries: make(map[string]weak.Pointer[T])}
}

// Name returns the name of the cache.
func (C *Cache[T]) Name() string {
	return C.name
}

// Len returns the number of entries, including those whose object
// has been collected but not yet removed.
func (C *Cache[T]) Len() int {
	C.mu.Lock()
	defer C.mu.Unlock()
	return len(C.entries)
}

// Get returns the live instance for key, or nil.
func (C *Cache[T]) Get(key string) *T {
	C.mu.Lock()
	defer C.mu.Unlock()
	if wp, ok := C.entries[key]; ok {
		return wp.Value()
	}
	return nil
}

// GetOrCreate returns the live instance for key if there is one. Otherwise
// it calls build and, if it succeeds, caches and returns its result.
// With useCache false, build is always called and the cache is neither
// read nor written. An empty key is an error wrapping ErrStructuralKey.
// build is called with the cache unlocked, so it may use other caches.
func (C *Cache[T]) GetOrCreate(key string, useCache bool, build func() (*T, error)) (*T, error) {
	if key == "" {
		return nil, fmt.Errorf("cache %s: %w", C.name, ErrStructuralKey)
	}
	if !useCache {
		return build()
	}
	if v := C.Get(key); v != nil {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("cache %s: build for %q returned nil", C.name, key)
	}
	C.mu.Lock()
	defer C.mu.Unlock()
	//someone else may have built it meanwhile. The first one wins.
	if live := C.entries[key].Value(); live != nil {
		return live, nil
	}
	C.store(key, v)
	return v, nil
}

// Update reconciles v, built out of band, with the cache. If there is a
// different live instance for key, its value is overwritten with *v and
// that instance is returned. Otherwise v becomes the cached instance and
// is returned.
func (C *Cache[T]) Update(key string, v *T) (*T, error) {
	if key == "" {
		return nil, fmt.Errorf("cache %s: %w", C.name, ErrStructuralKey)
	}
	C.mu.Lock()
	defer C.mu.Unlock()
	live := C.entries[key].Value()
	if live == nil {
		C.store(key, v)
		return v, nil
	}
	if live != v {
		*live = *v
	}
	return live, nil
}

// store needs the lock to be held.
func (C *Cache[T]) store(key string, v *T) {
	wp := weak.Make(v)
	C.entries[key] = wp
	runtime.AddCleanup(v, C.remove, entry[T]{key: key, wp: wp})
}

type entry[T any] struct {
	key string
	wp  weak.Pointer[T]
}

// remove drops the entry for e.key, unless it has been replaced by another
// object since e was stored.
func (C *Cache[T]) remove(e entry[T]) {
	C.mu.Lock()
	defer C.mu.Unlock()
	if cur, ok := C.entries[e.key]; ok && cur == e.wp {
		delete(C.entries, e.key)
	}
}
