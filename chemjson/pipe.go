/*
 * pipe.go, part of gocage.
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
	"bufio"
	"encoding/json"
	"errors"
	"io"
)

// ErrRemote is wrapped by the errors reported by the program at the
// other end of a pipe.
var ErrRemote = errors.New("external program error")

// Request is a job for an external program. Each message takes exactly
// one line.
type Request struct {
	Job        string
	Options    map[string]string `json:",omitempty"`
	Molecules  []*Record         `json:",omitempty"`
	StringInfo []string          `json:",omitempty"`
}

// Response is what the external program sends back.
type Response struct {
	Err        *Error    `json:",omitempty"`
	Molecules  []*Record `json:",omitempty"`
	StringInfo []string  `json:",omitempty"`
	IntInfo    [][]int   `json:",omitempty"`
}

// RemoteError returns the error reported in the response, if any, wrapping
// ErrRemote.
func (R *Response) RemoteError() error {
	if R.Err == nil {
		return nil
	}
	e := *R.Err
	e.kind = ErrRemote
	if e.Message == "" {
		e.Message = ErrRemote.Error()
	}
	return &e
}

// Send marshals v and writes it to out as a single line.
func Send(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	if err := enc.Encode(v); err != nil {
		return newError(ErrIllFormatted, "", "Send", err)
	}
	return nil
}

// Receive reads one line from in and unmarshals it into v.
func Receive(in *bufio.Reader, v any) error {
	line, err := in.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return newError(ErrIllFormatted, "", "Receive", err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return newError(ErrIllFormatted, "", "Receive", err)
	}
	return nil
}
