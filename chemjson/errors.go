/*
 * errors.go, part of gocage.
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

package chemjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrIllFormatted is returned for records that can't be encoded or decoded.
var ErrIllFormatted = errors.New("ill formatted record")

// Error is an easily JSON-serializable error type, so errors can travel
// between programs as well.
type Error struct {
	deco     []string
	kind     error
	Class    string //the class of the record involved, if any
	Function string //which go function gave the error
	Message  string //the error itself
}

func newError(kind error, class, function string, err error) *Error {
	msg := kind.Error()
	if class != "" {
		msg += " (" + class + ")"
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{deco: []string{function}, kind: kind, Class: class, Function: function, Message: msg}
}

// Error implements the error interface.
func (J *Error) Error() string {
	return J.Message
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (J *Error) Decorate(dec string) []string {
	if dec == "" {
		return J.deco
	}
	J.deco = append(J.deco, dec)
	return J.deco
}

// Critical always returns true. No chemjson error can be ignored.
func (J *Error) Critical() bool { return true }

func (J *Error) Unwrap() error { return J.kind }

// Marshal serializes the error. Panics on failure.
func (J *Error) Marshal() []byte {
	ret, err2 := json.Marshal(J)
	if err2 != nil {
		panic(strings.Join([]string{J.Error(), err2.Error()}, " - "))
	}
	return ret
}

func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e interface{ Decorate(string) []string }
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}
