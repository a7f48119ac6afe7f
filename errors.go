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

package chem

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel values, to be used with errors.Is.
var (
	// ErrFileFormatMismatch is returned when a structure file disagrees with the
	// molecule it is supposed to update, in atom count or in elements.
	ErrFileFormatMismatch = errors.New("structure file does not match molecule")

	// ErrUnknownFormat is returned for file extensions with no reader or writer.
	ErrUnknownFormat = errors.New("unknown structure file format")

	// ErrInvalidMolecule is returned when atoms, bonds and conformers are inconsistent.
	ErrInvalidMolecule = errors.New("invalid molecule")

	// ErrIllFormatted is returned when a structure file can't be parsed.
	ErrIllFormatted = errors.New("ill formatted structure file")
)

// CError is the concrete error type of the package.
type CError struct {
	msg      string
	filename string
	deco     []string
	critical bool
	kind     error
}

func newError(kind error, filename string, caller string, format string, a ...any) *CError {
	return &CError{msg: fmt.Sprintf(format, a...), filename: filename, deco: []string{caller}, critical: true, kind: kind}
}

// Error returns a string with an error message.
func (err *CError) Error() string {
	var b strings.Builder
	if err.kind != nil {
		b.WriteString(err.kind.Error())
		b.WriteString(": ")
	}
	b.WriteString(err.msg)
	if err.filename != "" {
		b.WriteString(" (file: " + err.filename + ")")
	}
	return b.String()
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *CError) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

// Critical returns whether the error is critical or it can be ignored
func (err *CError) Critical() bool { return err.critical }

// FileName returns the file that caused the error, if any.
func (err *CError) FileName() string { return err.filename }

func (err *CError) Unwrap() error { return err.kind }

// errDecorate decorates the error with the caller's name before returning it,
// if the error implements Error. Other errors are returned untouched.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
	}
	return err
}

// PanicMsg is a message used for panics, even though it does satisfy the error interface.
// for errors use CError.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNoConformer  = PanicMsg("gocage: conformer index out of range")
	ErrAtomOutRange = PanicMsg("gocage: atom index out of range")
	ErrNoAtoms      = PanicMsg("gocage: empty atom selection")
	ErrNilMolecule  = PanicMsg("gocage: nil molecule")
)
