/*
 * molfile.go, part of gocage.
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
	"strconv"
	"strings"

	v3 "github.com/gocage/gocage/v3"
)

const molHeader = "\n     RDKit          3D\n\n  0  0  0  0  0  0  0  0  0  0999 V3000\n"

// MolBlock returns a V3000 MDL mol block for the given atoms (all if nil)
// in the given conformer. Coordinates are written with 4 decimals.
// When a subset is written, atoms are renumbered in the order given and only
// the bonds with both ends in the subset are kept.
func (M *Molecule) MolBlock(atomIDs []int, conformer ...int) string {
	var b strings.Builder
	M.writeMolBlock(&b, atomIDs, conformer)
	return b.String()
}

func (M *Molecule) writeMolBlock(out io.Writer, atomIDs []int, conformer []int) {
	if atomIDs == nil {
		atomIDs = M.allIDs()
	}
	coords := M.AtomCoords(atomIDs, conformer...)
	newid := make(map[int]int, len(atomIDs))
	var atoms strings.Builder
	for i, id := range atomIDs {
		newid[id] = i + 1
		at := M.atoms[id]
		c := coords.RawRowView(i)
		charge := ""
		if at.Charge != 0 {
			charge = fmt.Sprintf(" CHG=%d", at.Charge)
		}
		fmt.Fprintf(&atoms, "M  V30 %d %s %.4f %.4f %.4f 0%s\n", i+1, at.Symbol(), c[0], c[1], c[2], charge)
	}
	var bonds strings.Builder
	nbonds := 0
	for _, bond := range M.bonds {
		a1, ok1 := newid[bond.At1]
		a2, ok2 := newid[bond.At2]
		if !ok1 || !ok2 {
			continue
		}
		nbonds++
		fmt.Fprintf(&bonds, "M  V30 %d %d %d %d\n", nbonds, int(bond.Order), a1, a2)
	}
	fmt.Fprint(out, molHeader)
	fmt.Fprint(out, "M  V30 BEGIN CTAB\n")
	fmt.Fprintf(out, "M  V30 COUNTS %d %d 0 0 0\n", len(atomIDs), nbonds)
	fmt.Fprint(out, "M  V30 BEGIN ATOM\n")
	fmt.Fprint(out, atoms.String())
	fmt.Fprint(out, "M  V30 END ATOM\n")
	fmt.Fprint(out, "M  V30 BEGIN BOND\n")
	fmt.Fprint(out, bonds.String())
	fmt.Fprint(out, "M  V30 END BOND\n")
	fmt.Fprint(out, "M  V30 END CTAB\n")
	fmt.Fprint(out, "M  END\n\n$$$$\n")
}

// MolFileRead reads the first record of an MDL mol or sdf file, in the V3000 or V2000
// format, and returns the molecule, with the coordinates in conformer 0.
func MolFileRead(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mol, err := MolRead(f)
	if err != nil {
		if e, ok := err.(*CError); ok {
			e.filename = path
		}
		return nil, errDecorate(err, "MolFileRead")
	}
	return mol, nil
}

// MolRead reads a V3000 or V2000 mol block from in.
func MolRead(in io.Reader) (*Molecule, error) {
	lines := make([]string, 0, 64)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		l := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(l, "$$$$") {
			break
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 4 {
		return nil, newError(ErrIllFormatted, "", "MolRead", "only %d lines in mol block", len(lines))
	}
	if strings.Contains(lines[3], "V3000") {
		return readV3000(lines[4:])
	}
	return readV2000(lines[3:])
}

func readV3000(lines []string) (*Molecule, error) {
	var atoms []*Atom
	var bonds []*Bond
	var coords []float64
	ids := make(map[int]int)
	section := ""
	for n, l := range lines {
		if !strings.HasPrefix(l, "M  V30 ") {
			if strings.HasPrefix(l, "M  END") {
				break
			}
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(l, "M  V30 "))
		switch {
		case strings.HasPrefix(body, "BEGIN "):
			section = strings.TrimPrefix(body, "BEGIN ")
			continue
		case strings.HasPrefix(body, "END "):
			section = ""
			continue
		}
		fields := strings.Fields(body)
		switch section {
		case "ATOM":
			if len(fields) < 5 {
				return nil, newError(ErrIllFormatted, "", "readV3000", "atom line %d has %d fields", n+5, len(fields))
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, newError(ErrIllFormatted, "", "readV3000", "bad atom index in line %d: %s", n+5, err)
			}
			at := &Atom{ID: len(atoms), Z: AtomicNumber(fields[1])}
			if at.Z == 0 {
				return nil, newError(ErrIllFormatted, "", "readV3000", "unknown element %q in line %d", fields[1], n+5)
			}
			for _, kv := range fields[5:] {
				if v, ok := strings.CutPrefix(kv, "CHG="); ok {
					at.Charge, err = strconv.Atoi(v)
					if err != nil {
						return nil, newError(ErrIllFormatted, "", "readV3000", "bad charge in line %d: %s", n+5, err)
					}
				}
			}
			xyz, err := parseFloats(fields[2:5])
			if err != nil {
				return nil, newError(ErrIllFormatted, "", "readV3000", "bad coordinates in line %d: %s", n+5, err)
			}
			ids[id] = at.ID
			atoms = append(atoms, at)
			coords = append(coords, xyz...)
		case "BOND":
			if len(fields) < 4 {
				return nil, newError(ErrIllFormatted, "", "readV3000", "bond line %d has %d fields", n+5, len(fields))
			}
			nums, err := parseInts(fields[1:4])
			if err != nil {
				return nil, newError(ErrIllFormatted, "", "readV3000", "bad bond in line %d: %s", n+5, err)
			}
			a1, ok1 := ids[nums[1]]
			a2, ok2 := ids[nums[2]]
			if !ok1 || !ok2 {
				return nil, newError(ErrIllFormatted, "", "readV3000", "bond in line %d refers to unknown atoms", n+5)
			}
			bonds = append(bonds, &Bond{Index: len(bonds), At1: a1, At2: a2, Order: BondOrder(nums[0])})
		}
	}
	return buildRead(atoms, bonds, coords)
}

// v2000 charge codes
var v2000Charge = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

func readV2000(lines []string) (*Molecule, error) {
	counts := lines[0]
	if len(counts) < 6 {
		return nil, newError(ErrIllFormatted, "", "readV2000", "short counts line")
	}
	nums, err := parseInts([]string{counts[0:3], counts[3:6]})
	if err != nil {
		return nil, newError(ErrIllFormatted, "", "readV2000", "bad counts line: %s", err)
	}
	na, nb := nums[0], nums[1]
	if na < 0 || nb < 0 {
		return nil, newError(ErrIllFormatted, "", "readV2000", "negative counts: %q", counts)
	}
	if len(lines) < 1+na+nb {
		return nil, newError(ErrIllFormatted, "", "readV2000", "%d atoms and %d bonds declared but only %d lines", na, nb, len(lines)-1)
	}
	atoms := make([]*Atom, 0, na)
	bonds := make([]*Bond, 0, nb)
	coords := make([]float64, 0, 3*na)
	for i := 0; i < na; i++ {
		fields := strings.Fields(lines[1+i])
		if len(fields) < 4 {
			return nil, newError(ErrIllFormatted, "", "readV2000", "atom %d has %d fields", i+1, len(fields))
		}
		xyz, err := parseFloats(fields[0:3])
		if err != nil {
			return nil, newError(ErrIllFormatted, "", "readV2000", "bad coordinates for atom %d: %s", i+1, err)
		}
		at := &Atom{ID: i, Z: AtomicNumber(fields[3])}
		if at.Z == 0 {
			return nil, newError(ErrIllFormatted, "", "readV2000", "unknown element %q for atom %d", fields[3], i+1)
		}
		if len(fields) > 5 {
			if c, err := strconv.Atoi(fields[5]); err == nil {
				at.Charge = v2000Charge[c]
			}
		}
		atoms = append(atoms, at)
		coords = append(coords, xyz...)
	}
	for i := 0; i < nb; i++ {
		l := lines[1+na+i]
		if len(l) < 9 {
			return nil, newError(ErrIllFormatted, "", "readV2000", "short line for bond %d", i+1)
		}
		b, err := parseInts([]string{l[0:3], l[3:6], l[6:9]})
		if err != nil || b[0] < 1 || b[0] > na || b[1] < 1 || b[1] > na {
			return nil, newError(ErrIllFormatted, "", "readV2000", "bad bond %d", i+1)
		}
		bonds = append(bonds, &Bond{Index: i, At1: b[0] - 1, At2: b[1] - 1, Order: BondOrder(b[2])})
	}
	//the property block charges take precedence over the atom block ones.
	for _, l := range lines[1+na+nb:] {
		if !strings.HasPrefix(l, "M  CHG") {
			continue
		}
		f := strings.Fields(l)
		if len(f) < 4 {
			return nil, newError(ErrIllFormatted, "", "readV2000", "truncated charge line: %q", l)
		}
		vals, err := parseInts(f[3:])
		if err != nil || len(vals)%2 != 0 {
			return nil, newError(ErrIllFormatted, "", "readV2000", "bad charge line: %q", l)
		}
		for j := 0; j < len(vals); j += 2 {
			if vals[j] < 1 || vals[j] > na {
				return nil, newError(ErrIllFormatted, "", "readV2000", "charge for unknown atom %d", vals[j])
			}
			atoms[vals[j]-1].Charge = vals[j+1]
		}
	}
	return buildRead(atoms, bonds, coords)
}

func buildRead(atoms []*Atom, bonds []*Bond, coords []float64) (*Molecule, error) {
	if len(atoms) == 0 {
		return NewMolecule(nil, nil)
	}
	c, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, err
	}
	return NewMolecule(atoms, bonds, c)
}

func parseFloats(s []string) ([]float64, error) {
	ret := make([]float64, len(s))
	var err error
	for i, v := range s {
		ret[i], err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func parseInts(s []string) ([]int, error) {
	ret := make([]int, len(s))
	var err error
	for i, v := range s {
		ret[i], err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}
