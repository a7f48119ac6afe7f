/*
 * update.go, part of gocage.
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
	"os"
	"path/filepath"
	"strings"
	"sync"

	v3 "github.com/gocage/gocage/v3"
)

// Bohr2A converts Bohr to Angstrom.
const Bohr2A = 0.5291772105638411

// CoordReader reads a structure file and returns it as a molecule. Only
// the atoms and the first conformer are used to update other molecules.
type CoordReader func(path string) (*Molecule, error)

var (
	readersMu sync.RWMutex
	readers   = map[string]CoordReader{}
)

// RegisterCoordReader makes UpdateFromFile use reader for files with the
// extension ext (e.g. ".mae"), for formats this package can't read itself.
// The built-in formats can't be overridden.
func RegisterCoordReader(ext string, reader CoordReader) error {
	ext = strings.ToLower(ext)
	switch ext {
	case ".mol", ".sdf", ".xyz", ".coord":
		return newError(ErrUnknownFormat, "", "RegisterCoordReader", "%s files are read natively", ext)
	}
	readersMu.Lock()
	defer readersMu.Unlock()
	readers[ext] = reader
	return nil
}

func coordReader(ext string) (CoordReader, bool) {
	readersMu.RLock()
	defer readersMu.RUnlock()
	r, ok := readers[ext]
	return r, ok
}

// UpdateFromFile sets the positions of the conformer (0 by default, or a
// new one with NewConformer) to those in the structure file path.
// The format is chosen from the extension: .mol and .sdf, .xyz, Turbomole's
// .coord (in Bohr), or any registered with RegisterCoordReader.
// The file must have the same number of atoms as the molecule, with the same
// elements in the same order, otherwise an error wrapping ErrFileFormatMismatch
// is returned and the molecule is not changed.
func (M *Molecule) UpdateFromFile(path string, conformer ...int) error {
	ext := strings.ToLower(filepath.Ext(path))
	var zs []int
	var pos *v3.Matrix
	var err error
	switch ext {
	case ".mol", ".sdf":
		zs, pos, err = fromMolecule(MolFileRead(path))
	case ".xyz":
		zs, pos, err = fromMolecule(XYZFileRead(path))
	case ".coord":
		zs, pos, err = turbomoleRead(path)
	default:
		r, ok := coordReader(ext)
		if !ok {
			return newError(ErrUnknownFormat, path, "UpdateFromFile", "can't update from %q files", ext)
		}
		zs, pos, err = fromMolecule(r(path))
	}
	if err != nil {
		return errDecorate(err, "UpdateFromFile")
	}
	if len(zs) != len(M.atoms) {
		return newError(ErrFileFormatMismatch, path, "UpdateFromFile", "the file has %d atoms but the molecule has %d", len(zs), len(M.atoms))
	}
	for i, z := range zs {
		if z != M.atoms[i].Z {
			return newError(ErrFileFormatMismatch, path, "UpdateFromFile", "atom %d is %s in the file but %s in the molecule", i, Symbol(z), M.atoms[i].Symbol())
		}
	}
	return errDecorate(M.SetPositionMatrix(pos, conformer...), "UpdateFromFile")
}

func fromMolecule(mol *Molecule, err error) ([]int, *v3.Matrix, error) {
	if err != nil {
		return nil, nil, err
	}
	if mol.NConformers() == 0 {
		return nil, nil, nil
	}
	zs := make([]int, mol.Len())
	for i := range zs {
		zs[i] = mol.atoms[i].Z
	}
	return zs, mol.PositionMatrix(0), nil
}

// turbomoleRead reads the $coord section of a Turbomole coord file,
// converting the positions to Angstrom.
func turbomoleRead(path string) ([]int, *v3.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	in := false
	var zs []int
	var coords []float64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "$") {
			if in {
				break
			}
			in = strings.HasPrefix(line, "$coord")
			continue
		}
		if !in || line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, nil, newError(ErrIllFormatted, path, "turbomoleRead", "line %q has %d fields", line, len(fields))
		}
		c, err := parseFloats(fields[:3])
		if err != nil {
			return nil, nil, newError(ErrIllFormatted, path, "turbomoleRead", "bad coordinates in %q: %s", line, err)
		}
		z := elementField(fields[3])
		if z == 0 {
			return nil, nil, newError(ErrIllFormatted, path, "turbomoleRead", "unknown element %q", fields[3])
		}
		zs = append(zs, z)
		for _, v := range c {
			coords = append(coords, v*Bohr2A)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(zs) == 0 {
		return nil, nil, nil
	}
	pos, err := v3.NewMatrix(coords)
	return zs, pos, err
}
