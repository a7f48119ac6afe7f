/*
 * files.go, part of gocage.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	v3 "github.com/gocage/gocage/v3"
)

// Write writes the given atoms (all if nil) of the requested conformer to
// path, in a format chosen from the extension: .mol and .sdf (V3000),
// .xyz or .pdb.
func (M *Molecule) Write(path string, atomIDs []int, conformer ...int) error {
	var w func(io.Writer)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mol", ".sdf":
		w = func(o io.Writer) { M.writeMolBlock(o, atomIDs, conformer) }
	case ".xyz":
		w = func(o io.Writer) { M.writeXYZ(o, atomIDs, conformer) }
	case ".pdb":
		w = func(o io.Writer) { M.writePDB(o, atomIDs, conformer) }
	default:
		return newError(ErrUnknownFormat, path, "Molecule.Write", "can't write %q files", filepath.Ext(path))
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	w(bw)
	if err := bw.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

//XYZ

// XYZWrite writes the coordinates coords with the elements in atoms to out, in XYZ format.
func XYZWrite(out io.Writer, coords *v3.Matrix, atoms Atomer) error {
	if coords.NVecs() != atoms.Len() {
		return newError(ErrInvalidMolecule, "", "XYZWrite", "%d coordinates for %d atoms", coords.NVecs(), atoms.Len())
	}
	if _, err := fmt.Fprintf(out, "%d\n\n", atoms.Len()); err != nil {
		return err
	}
	for i := 0; i < atoms.Len(); i++ {
		c := coords.RawRowView(i)
		if _, err := fmt.Fprintf(out, "%s %f %f %f\n", atoms.Atom(i).Symbol(), c[0], c[1], c[2]); err != nil {
			return err
		}
	}
	return nil
}

// XYZFileWrite writes the coordinates coords with the elements in atoms to a file
// named xyzname, which will be overwritten if it exists.
func XYZFileWrite(xyzname string, coords *v3.Matrix, atoms Atomer) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return err
	}
	if err := XYZWrite(out, coords, atoms); err != nil {
		out.Close()
		return errDecorate(err, "XYZFileWrite")
	}
	return out.Close()
}

func (M *Molecule) writeXYZ(out io.Writer, atomIDs []int, conformer []int) {
	if atomIDs == nil {
		atomIDs = M.allIDs()
	}
	//errors are caught by the buffered writer's Flush.
	XYZWrite(out, M.AtomCoords(atomIDs, conformer...), subset{M, atomIDs})
}

// subset is an Atomer with some of the atoms of a molecule.
type subset struct {
	mol *Molecule
	ids []int
}

func (S subset) Atom(i int) *Atom { return S.mol.Atom(S.ids[i]) }
func (S subset) Len() int         { return len(S.ids) }

// XYZFileRead reads an xyz file and returns a molecule without bonds.
// Elements can be given as symbols or as atomic numbers.
func XYZFileRead(xyzname string) (*Molecule, error) {
	atoms, coords, err := xyzRead(xyzname)
	if err != nil {
		return nil, errDecorate(err, "XYZFileRead")
	}
	return buildRead(atoms, nil, coords)
}

func xyzRead(xyzname string) ([]*Atom, []float64, error) {
	xyzfile, err := os.Open(xyzname)
	if err != nil {
		return nil, nil, err
	}
	defer xyzfile.Close()
	xyz := bufio.NewScanner(xyzfile)
	if !xyz.Scan() {
		return nil, nil, newError(ErrIllFormatted, xyzname, "xyzRead", "empty file")
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(xyz.Text()))
	if err != nil {
		return nil, nil, newError(ErrIllFormatted, xyzname, "xyzRead", "bad atom count: %s", err)
	}
	xyz.Scan() //comment line
	atoms := make([]*Atom, 0, natoms)
	coords := make([]float64, 0, 3*natoms)
	for xyz.Scan() {
		fields := strings.Fields(xyz.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, nil, newError(ErrIllFormatted, xyzname, "xyzRead", "line for atom %d has %d fields", len(atoms)+1, len(fields))
		}
		z := elementField(fields[0])
		if z == 0 {
			return nil, nil, newError(ErrIllFormatted, xyzname, "xyzRead", "unknown element %q", fields[0])
		}
		c, err := parseFloats(fields[1:4])
		if err != nil {
			return nil, nil, newError(ErrIllFormatted, xyzname, "xyzRead", "bad coordinates for atom %d: %s", len(atoms)+1, err)
		}
		atoms = append(atoms, &Atom{ID: len(atoms), Z: z})
		coords = append(coords, c...)
	}
	if err := xyz.Err(); err != nil {
		return nil, nil, err
	}
	if len(atoms) != natoms {
		return nil, nil, newError(ErrFileFormatMismatch, xyzname, "xyzRead", "%d atoms declared but %d atom lines found", natoms, len(atoms))
	}
	return atoms, coords, nil
}

// elementField returns the atomic number for a symbol or a number.
func elementField(s string) int {
	if z, err := strconv.Atoi(s); err == nil {
		if Symbol(z) == "" {
			return 0
		}
		return z
	}
	return AtomicNumber(s)
}

//PDB

func (M *Molecule) writePDB(out io.Writer, atomIDs []int, conformer []int) {
	if atomIDs == nil {
		atomIDs = M.allIDs()
	}
	coords := M.AtomCoords(atomIDs, conformer...)
	counts := make(map[string]int)
	in := make(map[int]bool, len(atomIDs))
	for i, id := range atomIDs {
		in[id] = true
		at := M.atoms[id]
		element := at.Symbol()
		counts[element]++
		name := fmt.Sprintf("%s%d", element, counts[element])
		c := coords.RawRowView(i)
		fmt.Fprintf(out, "%-6s%5d %-4s%-1s%-3s %-1s%4s%-1s   %8s%8s%8s%6s%6s          %2s%2d\n",
			"HETATM", id+1, name, "", "UNL", "", "1", "", pdbCoord(c[0]), pdbCoord(c[1]), pdbCoord(c[2]),
			"1.00", "0.00", element, at.Charge)
	}
	for _, b := range M.bonds {
		if in[b.At1] && in[b.At2] {
			fmt.Fprintf(out, "%-6s%5d%5d               \n", "CONECT", b.At1+1, b.At2+1)
		}
	}
	fmt.Fprint(out, "END\n")
}

// pdbCoord makes sure a coordinate is no more than 8 columns wide.
func pdbCoord(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}
