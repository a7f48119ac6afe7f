/*
 * bridge.go, part of gocage.
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

package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cage"
	"github.com/gocage/gocage/chemjson"
	"github.com/gocage/gocage/units"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Jobs understood by the helper program.
const (
	JobRead       = "read"
	JobSmiles     = "smiles"
	JobMatches    = "matches"
	JobSubstitute = "substitute"
	JobAssemble   = "assemble"
)

// Bridge talks to a long-running helper program, usually a script on top
// of a cheminformatics toolkit. Each request is one chemjson.Request line
// on the helper's stdin, answered by one chemjson.Response line on its
// stdout. The helper is started on the first request. Requests are
// serialized.
//
// A Bridge is a units.Oracle and a cage.Assembler.
type Bridge struct {
	Command string
	Args    []string
	Env     []string //added to the environment of the helper
	Log     *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

var (
	_ units.Oracle   = (*Bridge)(nil)
	_ cage.Assembler = (*Bridge)(nil)
	_ cage.Smiler    = (*Bridge)(nil)
)

func NewBridge(command string, args ...string) *Bridge {
	return &Bridge{Command: command, Args: args}
}

func (B *Bridge) log() *zap.Logger {
	if B.Log == nil {
		return zap.NewNop()
	}
	return B.Log
}

// start needs the lock to be held.
func (B *Bridge) start() error {
	if B.cmd != nil {
		return nil
	}
	cmd := exec.Command(B.Command, B.Args...)
	cmd.Env = append(os.Environ(), B.Env...)
	cmd.Stderr = os.Stderr
	in, err := cmd.StdinPipe()
	if err != nil {
		return Error{ErrNotRunning, Helper, B.Command, err.Error(), []string{"StdinPipe", "start"}, true}
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return Error{ErrNotRunning, Helper, B.Command, err.Error(), []string{"StdoutPipe", "start"}, true}
	}
	if err := cmd.Start(); err != nil {
		return Error{ErrNotRunning, Helper, B.Command, err.Error(), []string{"exec.Start", "start"}, true}
	}
	B.log().Debug("helper started", zap.String("command", B.Command), zap.Int("pid", cmd.Process.Pid))
	B.cmd, B.in, B.out = cmd, in, bufio.NewReader(out)
	return nil
}

// Close ends the helper by closing its stdin, and waits for it.
func (B *Bridge) Close() error {
	B.mu.Lock()
	defer B.mu.Unlock()
	if B.cmd == nil {
		return nil
	}
	err := multierr.Append(B.in.Close(), B.cmd.Wait())
	B.cmd, B.in, B.out = nil, nil, nil
	return err
}

// kill needs the lock to be held.
func (B *Bridge) kill() {
	if B.cmd == nil {
		return
	}
	_ = B.cmd.Process.Kill()
	_ = B.cmd.Wait()
	B.cmd, B.in, B.out = nil, nil, nil
}

// Call sends req to the helper and returns its response. An error
// reported by the helper is returned wrapping chemjson.ErrRemote. If ctx
// is done before the answer arrives, the helper is killed, and a new one
// will be started for the next request.
func (B *Bridge) Call(ctx context.Context, req *chemjson.Request) (*chemjson.Response, error) {
	B.mu.Lock()
	defer B.mu.Unlock()
	if err := B.start(); err != nil {
		return nil, err
	}
	type result struct {
		resp *chemjson.Response
		err  error
	}
	done := make(chan result, 1)
	in, out := B.in, B.out
	go func() {
		if err := chemjson.Send(in, req); err != nil {
			done <- result{err: err}
			return
		}
		resp := new(chemjson.Response)
		err := chemjson.Receive(out, resp)
		done <- result{resp, err}
	}()
	select {
	case <-ctx.Done():
		B.kill()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			B.kill()
			return nil, Error{ErrNotRunning, Helper, B.Command, r.err.Error(), []string{"Call"}, true}
		}
		if err := r.resp.RemoteError(); err != nil {
			return nil, fmt.Errorf("%s job: %w", req.Job, err)
		}
		return r.resp, nil
	}
}

func molRecord(m *chem.Molecule) *chemjson.Record {
	return chemjson.NewRecord("Molecule", m)
}

func (B *Bridge) molecule(ctx context.Context, req *chemjson.Request) (*chem.Molecule, error) {
	resp, err := B.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Molecules) == 0 {
		return nil, fmt.Errorf("%s job: %w", req.Job, errNoMolecule)
	}
	return chemjson.MoleculeFromRecord(resp.Molecules[0])
}

var errNoMolecule = errors.New("helper returned no molecule")

// ReadFile asks the helper to read the structure file path, in any
// format the helper understands.
func (B *Bridge) ReadFile(path string) (*chem.Molecule, error) {
	return B.molecule(context.Background(), &chemjson.Request{Job: JobRead, StringInfo: []string{path}})
}

// Smiles returns the canonical SMILES of m.
func (B *Bridge) Smiles(m *chem.Molecule) (string, error) {
	resp, err := B.Call(context.Background(), &chemjson.Request{Job: JobSmiles, Molecules: []*chemjson.Record{molRecord(m)}})
	if err != nil {
		return "", err
	}
	if len(resp.StringInfo) == 0 {
		return "", fmt.Errorf("%s job: helper returned no SMILES", JobSmiles)
	}
	return resp.StringInfo[0], nil
}

// Matches returns the atom IDs of each match of the SMARTS pattern in m.
func (B *Bridge) Matches(m *chem.Molecule, smarts string) ([][]int, error) {
	resp, err := B.Call(context.Background(), &chemjson.Request{
		Job:       JobMatches,
		Options:   map[string]string{"smarts": smarts},
		Molecules: []*chemjson.Record{molRecord(m)},
	})
	if err != nil {
		return nil, err
	}
	for _, match := range resp.IntInfo {
		for _, id := range match {
			if id < 0 || id >= m.Len() {
				return nil, fmt.Errorf("%s job: atom %d out of range", JobMatches, id)
			}
		}
	}
	return resp.IntInfo, nil
}

// Substitute returns a copy of m with the matches of smarts replaced by
// replacement.
func (B *Bridge) Substitute(m *chem.Molecule, smarts, replacement string) (*chem.Molecule, error) {
	return B.molecule(context.Background(), &chemjson.Request{
		Job:       JobSubstitute,
		Options:   map[string]string{"smarts": smarts, "replacement": replacement},
		Molecules: []*chemjson.Record{molRecord(m)},
	})
}

// unitRecord returns the record of the pristine or the substituted
// molecule of a unit.
func unitRecord(u *units.Unit, heavy bool) (*chemjson.Record, error) {
	if !heavy {
		return molRecord(u.Prist()), nil
	}
	h := u.Heavy()
	if h == nil {
		return nil, fmt.Errorf("%s job: %s has no functional group", JobAssemble, u.PristFile())
	}
	return molRecord(h), nil
}

// Assemble asks the helper to build the cage with the given topology from
// the pristine or, with heavy, the substituted molecules of bb and lk. The
// "variant" option tells the helper which ones it gets.
func (B *Bridge) Assemble(ctx context.Context, bb, lk *units.Unit, topology string, heavy bool) (*chem.Molecule, error) {
	brec, err := unitRecord(bb, heavy)
	if err != nil {
		return nil, err
	}
	lrec, err := unitRecord(lk, heavy)
	if err != nil {
		return nil, err
	}
	variant := "prist"
	if heavy {
		variant = "heavy"
	}
	return B.molecule(ctx, &chemjson.Request{
		Job:        JobAssemble,
		Options:    map[string]string{"topology": topology, "variant": variant},
		Molecules:  []*chemjson.Record{brec, lrec},
		StringInfo: []string{bb.PristFile(), lk.PristFile()},
	})
}

// RegisterReader makes chem.Molecule.UpdateFromFile read files with the
// extension ext (e.g. ".mae") through the helper.
func (B *Bridge) RegisterReader(ext string) error {
	return chem.RegisterCoordReader(ext, B.ReadFile)
}
