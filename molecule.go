/*
 * molecule.go, part of gocage.
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
	"fmt"

	v3 "github.com/gocage/gocage/v3"
)

// Atom contains the information of one atom of a molecule.
// Atoms are not changed once the molecule is built.
type Atom struct {
	ID     int //position in the molecule's atom sequence
	Z      int //atomic number
	Charge int //formal charge
}

// Symbol returns the element symbol of the atom.
func (A *Atom) Symbol() string {
	return Symbol(A.Z)
}

// Mass returns the standard atomic mass of the atom's element.
func (A *Atom) Mass() float64 {
	return Mass(A.Z)
}

// Copy puts in the receiver a copy of B.
func (A *Atom) Copy(B *Atom) {
	if A == nil || B == nil {
		panic(ErrNilMolecule)
	}
	*A = *B
}

// BondOrder uses the MDL molfile codes.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

func (B BondOrder) String() string {
	switch B {
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	case Aromatic:
		return "aromatic"
	}
	return fmt.Sprintf("order(%d)", int(B))
}

// Bond joins the atoms with IDs At1 and At2.
type Bond struct {
	Index int
	At1   int
	At2   int
	Order BondOrder
}

// Cross returns the ID of the atom at the other side of the bond, or -1
// if id is not in the bond.
func (B *Bond) Cross(id int) int {
	switch id {
	case B.At1:
		return B.At2
	case B.At2:
		return B.At1
	}
	return -1
}

// NewConformer can be given as a conformer index to SetPositionMatrix
// and to UpdateFromFile so a new conformer is appended.
const NewConformer = -1

// Molecule is an ordered set of atoms, the bonds among them, and
// any number of conformers. Conformer 0 is the default one.
// Atoms and bonds are fixed at construction; conformers are only replaced
// wholesale or transformed in place by the Apply* methods.
type Molecule struct {
	atoms      []Atom
	bonds      []Bond
	conformers []*v3.Matrix
}

// NewMolecule builds a molecule from copies of the given atoms and bonds and,
// if given, conformers. Atom IDs must match their position in atoms, bond
// endpoints must be valid atom IDs, and every conformer must have one
// vector per atom.
func NewMolecule(atoms []*Atom, bonds []*Bond, coords ...*v3.Matrix) (*Molecule, error) {
	M := &Molecule{
		atoms: make([]Atom, len(atoms)),
		bonds: make([]Bond, len(bonds)),
	}
	for i, a := range atoms {
		if a == nil {
			return nil, newError(ErrInvalidMolecule, "", "NewMolecule", "atom %d is nil", i)
		}
		if a.ID != i {
			return nil, newError(ErrInvalidMolecule, "", "NewMolecule", "atom %d has ID %d", i, a.ID)
		}
		M.atoms[i] = *a
	}
	for i, b := range bonds {
		if b == nil {
			return nil, newError(ErrInvalidMolecule, "", "NewMolecule", "bond %d is nil", i)
		}
		if b.At1 < 0 || b.At1 >= len(atoms) || b.At2 < 0 || b.At2 >= len(atoms) || b.At1 == b.At2 {
			return nil, newError(ErrInvalidMolecule, "", "NewMolecule", "bond %d joins invalid atoms %d and %d", i, b.At1, b.At2)
		}
		M.bonds[i] = *b
		M.bonds[i].Index = i
	}
	for i, c := range coords {
		if c == nil || c.NVecs() != len(atoms) {
			return nil, newError(ErrInvalidMolecule, "", "NewMolecule", "conformer %d doesn't have %d vectors", i, len(atoms))
		}
		M.conformers = append(M.conformers, c.Clone())
	}
	return M, nil
}

// Len returns the number of atoms in the molecule.
func (M *Molecule) Len() int {
	return len(M.atoms)
}

// Atom returns a copy of the ith atom. Panics if out of range.
func (M *Molecule) Atom(i int) *Atom {
	if i < 0 || i >= len(M.atoms) {
		panic(ErrAtomOutRange)
	}
	a := M.atoms[i]
	return &a
}

// NBonds returns the number of bonds in the molecule.
func (M *Molecule) NBonds() int {
	return len(M.bonds)
}

// Bond returns a copy of the ith bond. Panics if out of range.
func (M *Molecule) Bond(i int) *Bond {
	b := M.bonds[i]
	return &b
}

// Atoms returns copies of all the atoms.
func (M *Molecule) Atoms() []*Atom {
	ret := make([]*Atom, len(M.atoms))
	for i := range M.atoms {
		a := M.atoms[i]
		ret[i] = &a
	}
	return ret
}

// Bonds returns copies of all the bonds.
func (M *Molecule) Bonds() []*Bond {
	ret := make([]*Bond, len(M.bonds))
	for i := range M.bonds {
		b := M.bonds[i]
		ret[i] = &b
	}
	return ret
}

// Masses returns a slice with the masses of all atoms, or an error if some
// element has no known mass.
func (M *Molecule) Masses() ([]float64, error) {
	ret := make([]float64, len(M.atoms))
	for i := range M.atoms {
		ret[i] = M.atoms[i].Mass()
		if ret[i] == 0 {
			return nil, newError(ErrInvalidMolecule, "", "Masses", "no mass for atom %d (Z=%d)", i, M.atoms[i].Z)
		}
	}
	return ret, nil
}

// Charge returns the sum of the formal charges.
func (M *Molecule) Charge() int {
	c := 0
	for _, a := range M.atoms {
		c += a.Charge
	}
	return c
}

// NConformers returns the number of conformers in the molecule.
func (M *Molecule) NConformers() int {
	return len(M.conformers)
}

func confIndex(conformer []int) int {
	if len(conformer) > 0 {
		return conformer[0]
	}
	return 0
}

// conformer returns the conformer requested, not a copy. A non-existent
// conformer means a bug in the calling code, so it panics.
func (M *Molecule) conformer(conformer []int) *v3.Matrix {
	c := confIndex(conformer)
	if c < 0 || c >= len(M.conformers) {
		panic(ErrNoConformer)
	}
	return M.conformers[c]
}

// PositionMatrix returns a copy of the requested conformer (0 by default),
// with one row per atom.
func (M *Molecule) PositionMatrix(conformer ...int) *v3.Matrix {
	return M.conformer(conformer).Clone()
}

// SetPositionMatrix replaces the requested conformer (0 by default) with a copy
// of pos, which must have one row per atom. With NewConformer as the index,
// pos is appended as a new conformer.
func (M *Molecule) SetPositionMatrix(pos *v3.Matrix, conformer ...int) error {
	if pos == nil || pos.NVecs() != len(M.atoms) {
		n := 0
		if pos != nil {
			n = pos.NVecs()
		}
		return newError(ErrInvalidMolecule, "", "SetPositionMatrix", "%d positions given for %d atoms", n, len(M.atoms))
	}
	c := confIndex(conformer)
	if c == NewConformer {
		M.conformers = append(M.conformers, pos.Clone())
		return nil
	}
	//panics for bad indexes, as elsewhere.
	M.conformer(conformer)
	M.conformers[c] = pos.Clone()
	return nil
}

// Copy returns a deep copy of the molecule.
func (M *Molecule) Copy() *Molecule {
	ret := &Molecule{
		atoms: append([]Atom(nil), M.atoms...),
		bonds: append([]Bond(nil), M.bonds...),
	}
	for _, c := range M.conformers {
		ret.conformers = append(ret.conformers, c.Clone())
	}
	return ret
}

// Neighbors returns the IDs of the atoms bonded to the atom with ID id.
func (M *Molecule) Neighbors(id int) []int {
	ret := make([]int, 0, 4)
	for i := range M.bonds {
		if o := M.bonds[i].Cross(id); o >= 0 {
			ret = append(ret, o)
		}
	}
	return ret
}

// Merge returns a new molecule with the atoms and bonds of a followed by
// those of b, whose IDs are shifted by a.Len(), plus the extra bonds, which
// must use the new IDs. Only conformer 0 of each molecule is kept, and
// only if both have it.
func Merge(a, b *Molecule, extra ...*Bond) (*Molecule, error) {
	if a == nil || b == nil {
		panic(ErrNilMolecule)
	}
	n := a.Len()
	atoms := a.Atoms()
	for _, at := range b.Atoms() {
		at.ID += n
		atoms = append(atoms, at)
	}
	bonds := a.Bonds()
	for _, bo := range b.Bonds() {
		bo.At1 += n
		bo.At2 += n
		bonds = append(bonds, bo)
	}
	bonds = append(bonds, extra...)
	if a.NConformers() == 0 || b.NConformers() == 0 {
		return NewMolecule(atoms, bonds)
	}
	pos := v3.Zeros(len(atoms))
	pos.Stack(a.conformers[0], b.conformers[0])
	return NewMolecule(atoms, bonds, pos)
}
