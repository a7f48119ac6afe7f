/*
 * cursor.go, part of gocage.
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

package similarity

import (
	"errors"
	"sync"
)

// ErrExhausted is returned by a Cursor that has handed out all its items.
var ErrExhausted = errors.New("similarity: no candidates left")

// Cursor hands out a fixed sequence of paths, one per call. It never
// restarts. It is safe for concurrent use.
type Cursor struct {
	mu    sync.Mutex
	items []string
	pos   int
}

// NewCursor returns a cursor over a copy of items.
func NewCursor(items []string) *Cursor {
	return &Cursor{items: append([]string(nil), items...)}
}

// Next returns the next item, or ErrExhausted.
func (C *Cursor) Next() (string, error) {
	C.mu.Lock()
	defer C.mu.Unlock()
	if C.pos >= len(C.items) {
		return "", ErrExhausted
	}
	C.pos++
	return C.items[C.pos-1], nil
}

// Remaining returns the number of items not yet handed out.
func (C *Cursor) Remaining() int {
	C.mu.Lock()
	defer C.mu.Unlock()
	return len(C.items) - C.pos
}
