/*
 * xtb.go, part of gocage.
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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cage"
	"go.uber.org/zap"
)

// XTBHandle optimizes geometries with the xtb program. Each call runs in
// its own directory.
type XTBHandle struct {
	command string
	name    string
	nCPU    int
	method  string
	workDir string
	keep    bool
	log     *zap.Logger
	energy  float64
}

var _ cage.Optimizer = (*XTBHandle)(nil)

func NewXTBHandle() *XTBHandle {
	run := new(XTBHandle)
	run.SetDefaults()
	return run
}

// SetDefaults sets the command to xtb, the method to GFN-FF, the input
// name to gocage and the number of CPUs to half of those available.
func (O *XTBHandle) SetDefaults() {
	O.command = "xtb"
	O.name = "gocage"
	O.method = "gfnff"
	O.nCPU = max(runtime.NumCPU()/2, 1)
	O.log = zap.NewNop()
}

func (O *XTBHandle) SetnCPU(cpu int) { O.nCPU = cpu }

func (O *XTBHandle) NCPU() int { return O.nCPU }

func (O *XTBHandle) Command() string { return O.command }

func (O *XTBHandle) SetCommand(name string) { O.command = name }

func (O *XTBHandle) Name() string { return O.name }

func (O *XTBHandle) SetName(name string) { O.name = name }

func (O *XTBHandle) Method() string { return O.method }

// SetMethod sets the level of theory, one of gfn0, gfn1, gfn2 and gfnff.
// Anything else means gfn2.
func (O *XTBHandle) SetMethod(method string) { O.method = method }

func (O *XTBHandle) WorkDir() string { return O.workDir }

// SetWorkDir makes the handle run in a fresh subdirectory of dir, which is
// kept afterwards. By default a temporary directory is used and removed.
func (O *XTBHandle) SetWorkDir(dir string) {
	O.workDir = dir
	O.keep = dir != ""
}

func (O *XTBHandle) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	O.log = log
}

// Energy returns the energy, in Hartree, from the last successful
// optimization.
func (O *XTBHandle) Energy() float64 { return O.energy }

func (O *XTBHandle) args(charge int) []string {
	ret := []string{O.name + ".xyz"}
	switch O.method {
	case "gfnff":
		ret = append(ret, "--gfnff")
	case "gfn0", "gfn1", "gfn2":
		ret = append(ret, "--gfn", strings.TrimPrefix(O.method, "gfn"))
	default:
		ret = append(ret, "--gfn", "2")
	}
	ret = append(ret, "--opt", "normal", "-c", strconv.Itoa(charge))
	if O.nCPU > 1 {
		ret = append(ret, "-P", strconv.Itoa(O.nCPU))
	}
	return ret
}

// Optimize relaxes the geometry of m with xtb and sets its conformer 0
// to the result.
func (O *XTBHandle) Optimize(ctx context.Context, m *chem.Molecule) error {
	dir, err := os.MkdirTemp(O.workDir, O.name+"-xtb-")
	if err != nil {
		return Error{ErrCantInput, XTB, O.name, err.Error(), []string{"os.MkdirTemp", "Optimize"}, true}
	}
	if !O.keep {
		defer os.RemoveAll(dir)
	}
	if err := chem.XYZFileWrite(filepath.Join(dir, O.name+".xyz"), m.PositionMatrix(), m); err != nil {
		return Error{ErrCantInput, XTB, O.name, err.Error(), []string{"chem.XYZFileWrite", "Optimize"}, true}
	}
	outname := filepath.Join(dir, O.name+".out")
	out, err := os.Create(outname)
	if err != nil {
		return Error{ErrCantInput, XTB, O.name, err.Error(), []string{"os.Create", "Optimize"}, true}
	}
	defer out.Close()
	args := O.args(m.Charge())
	cmd := exec.CommandContext(ctx, O.command, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	O.log.Debug("running xtb", zap.String("dir", dir), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return Error{ErrNotRunning, XTB, O.name, err.Error(), []string{"exec.Run", "Optimize"}, true}
	}
	if !normalTermination(outname) {
		return Error{ErrNoGeometry, XTB, O.name, "calculation didn't end normally", []string{"Optimize"}, true}
	}
	if err := m.UpdateFromFile(filepath.Join(dir, "xtbopt.xyz")); err != nil {
		return Error{ErrNoGeometry, XTB, O.name, err.Error(), []string{"chem.UpdateFromFile", "Optimize"}, true}
	}
	e, err := energy(outname)
	if err != nil {
		O.log.Warn("no energy in xtb output", zap.String("file", outname), zap.Error(err))
	}
	O.energy = e
	return nil
}

// lastLine returns the last line of the file that contains str, or an
// empty string.
func lastLine(filename, str string) string {
	f, err := os.Open(filename)
	if err != nil {
		return ""
	}
	defer f.Close()
	var ret string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if strings.Contains(s.Text(), str) {
			ret = s.Text()
		}
	}
	return ret
}

func normalTermination(filename string) bool {
	return lastLine(filename, "normal termination of x") != "" && lastLine(filename, "abnormal termination of x") == ""
}

// energy reads the total energy from an output line like
// "| TOTAL ENERGY   -5.070544440612 Eh   |".
func energy(filename string) (float64, error) {
	line := lastLine(filename, "TOTAL ENERGY")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "Eh" && i > 0 {
			return strconv.ParseFloat(fields[i-1], 64)
		}
	}
	return 0, Error{ErrNoEnergy, XTB, filename, "", []string{"energy"}, true}
}
