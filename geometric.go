/*
 * geometric.go, part of gocage.
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
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Centroid returns the geometric center of the vectors in geometry.
func Centroid(geometry *v3.Matrix) *v3.Matrix {
	n := geometry.NVecs()
	ret := v3.Zeros(1)
	for i := 0; i < n; i++ {
		floats.Add(ret.RawRowView(0), geometry.RawRowView(i))
	}
	ret.Scale(1/float64(n), ret)
	return ret
}

// CenterOfMass returns the center of mass the atoms represented by the coordinates in geometry
// and the masses in mass, and an error. If mass is nil, it calculates the geometric center
func CenterOfMass(geometry *v3.Matrix, mass []float64) (*v3.Matrix, error) {
	if geometry == nil {
		return nil, fmt.Errorf("nil matrix to get the center of mass")
	}
	if mass == nil {
		return Centroid(geometry), nil
	}
	n := geometry.NVecs()
	if len(mass) != n {
		return nil, newError(ErrInvalidMolecule, "", "CenterOfMass", "%d masses for %d positions", len(mass), n)
	}
	total := floats.Sum(mass)
	if total == 0 {
		return nil, newError(ErrInvalidMolecule, "", "CenterOfMass", "total mass is zero")
	}
	ret := v3.Zeros(1)
	for i := 0; i < n; i++ {
		floats.AddScaled(ret.RawRowView(0), mass[i], geometry.RawRowView(i))
	}
	ret.Scale(1/total, ret)
	return ret, nil
}

// rightSingular returns the right singular vectors (as columns) of the
// given positions once centered.
func rightSingular(geometry *v3.Matrix) *mat.Dense {
	cen := Centroid(geometry)
	centered := v3.Zeros(geometry.NVecs())
	centered.SubVec(geometry, cen)
	var svd mat.SVD
	if ok := svd.Factorize(centered.Dense, mat.SVDFull); !ok {
		panic(v3.ErrShape)
	}
	var v mat.Dense
	svd.VTo(&v)
	return &v
}

//Molecule queries. All of them take the IDs of the atoms to consider,
//all of them if nil, and the conformer to use, 0 by default.
//An empty, non-nil, selection panics with ErrNoAtoms.

// AtomCoords returns a copy of the positions of the given atoms.
func (M *Molecule) AtomCoords(atomIDs []int, conformer ...int) *v3.Matrix {
	c := M.conformer(conformer)
	if atomIDs == nil {
		return c.Clone()
	}
	if len(atomIDs) == 0 {
		panic(ErrNoAtoms)
	}
	ret := v3.Zeros(len(atomIDs))
	if err := ret.SomeVecsSafe(c, atomIDs); err != nil {
		panic(ErrAtomOutRange)
	}
	return ret
}

// AtomDistance returns the distance between two atoms.
func (M *Molecule) AtomDistance(atom1, atom2 int, conformer ...int) float64 {
	c := M.conformer(conformer)
	if atom1 < 0 || atom2 < 0 || atom1 >= c.NVecs() || atom2 >= c.NVecs() {
		panic(ErrAtomOutRange)
	}
	return floats.Distance(c.RawRowView(atom1), c.RawRowView(atom2), 2)
}

// Centroid returns the geometric center of the given atoms.
func (M *Molecule) Centroid(atomIDs []int, conformer ...int) *v3.Matrix {
	return Centroid(M.AtomCoords(atomIDs, conformer...))
}

// CenterOfMass returns the mass-weighted center of the given atoms.
func (M *Molecule) CenterOfMass(atomIDs []int, conformer ...int) (*v3.Matrix, error) {
	mass, err := masses(M, atomIDs)
	if err != nil {
		return nil, errDecorate(err, "Molecule.CenterOfMass")
	}
	ret, err := CenterOfMass(M.AtomCoords(atomIDs, conformer...), mass)
	return ret, errDecorate(err, "Molecule.CenterOfMass")
}

// masses returns the masses of the atoms in atomIDs, all of them if nil.
func masses(ref Masser, atomIDs []int) ([]float64, error) {
	all, err := ref.Masses()
	if err != nil {
		return nil, err
	}
	if atomIDs == nil {
		return all, nil
	}
	ret := make([]float64, len(atomIDs))
	for i, id := range atomIDs {
		if id < 0 || id >= len(all) {
			panic(ErrAtomOutRange)
		}
		ret[i] = all[id]
	}
	return ret, nil
}

// Direction returns the normalized first right singular vector of the
// centered positions of the given atoms, i.e. the direction along which
// the atoms are most spread.
// The result is only meaningful for at least 3 non-collinear atoms;
// this is not checked.
func (M *Molecule) Direction(atomIDs []int, conformer ...int) *v3.Matrix {
	v := rightSingular(M.AtomCoords(atomIDs, conformer...))
	return v3.Normalize(v3.Vec(v.At(0, 0), v.At(1, 0), v.At(2, 0)))
}

// PlaneNormal returns the third right singular vector of the centered
// positions of the given atoms, which is the normal of the plane that
// best fits them. As with Direction, at least 3 non-collinear atoms are needed
// for a meaningful result, and this is not checked.
func (M *Molecule) PlaneNormal(atomIDs []int, conformer ...int) *v3.Matrix {
	v := rightSingular(M.AtomCoords(atomIDs, conformer...))
	return v3.Vec(v.At(0, 2), v.At(1, 2), v.At(2, 2))
}

// MaximumDiameter returns the distance between the corners of the
// axis-aligned box that encloses the given atoms.
func (M *Molecule) MaximumDiameter(atomIDs []int, conformer ...int) float64 {
	c := M.AtomCoords(atomIDs, conformer...)
	n := c.NVecs()
	minc := make([]float64, 3)
	maxc := make([]float64, 3)
	col := make([]float64, n)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, c.Dense)
		minc[j] = floats.Min(col)
		maxc[j] = floats.Max(col)
	}
	return floats.Distance(minc, maxc, 2)
}

func (M *Molecule) allIDs() []int {
	ret := make([]int, len(M.atoms))
	for i := range ret {
		ret[i] = i
	}
	return ret
}
