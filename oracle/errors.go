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

// Package oracle has the handles for the external programs the genetic
// algorithm relies on: xtb for geometry optimizations, and a helper
// speaking JSON over stdin/stdout for everything that needs a
// cheminformatics toolkit (SMILES, SMARTS matching, cage assembly).
package oracle

import (
	"errors"
	"fmt"
)

var (
	ErrNotRunning = errors.New("external program failed to run")
	ErrCantInput  = errors.New("can't write input")
	ErrNoGeometry = errors.New("no geometry in output")
	ErrNoEnergy   = errors.New("no energy in output")
)

// Program names, for the errors.
const (
	XTB    = "xtb"
	Helper = "helper"
)

// Error is the error type of the package. It follows the chem.Error
// interface.
type Error struct {
	kind      error
	program   string
	inputname string
	info      string
	deco      []string
	critical  bool
}

func (err Error) Error() string {
	msg := fmt.Sprintf("%s: %v (input %s)", err.program, err.kind, err.inputname)
	if err.info != "" {
		msg += ": " + err.info
	}
	return msg
}

// Decorate adds dec to the decoration slice of the error and returns
// the slice. An empty dec only returns it.
func (err Error) Decorate(dec string) []string {
	if dec == "" {
		return err.deco
	}
	err.deco = append(err.deco, dec)
	return err.deco
}

func (err Error) Critical() bool { return err.critical }

func (err Error) Unwrap() error { return err.kind }

// Program returns the name of the external program that failed.
func (err Error) Program() string { return err.program }
