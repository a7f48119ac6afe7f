/*
 * transforms.go, part of gocage.
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
	v3 "github.com/gocage/gocage/v3"
	"gonum.org/v1/gonum/mat"
)

// parallelTol is the length under which the projection of a vector on a
// plane is considered zero.
const parallelTol = 1e-8

//All the Apply* methods change only the requested conformer (0 by default)
//and return the molecule, so calls can be chained.

// ApplyDisplacement adds disp to every position of the conformer.
func (M *Molecule) ApplyDisplacement(disp *v3.Matrix, conformer ...int) *Molecule {
	c := M.conformer(conformer)
	c.AddVec(c, disp)
	return M
}

// ApplyRotationAboutAxis rotates the conformer by theta radians about
// axis, passing through origin. Positive angles follow the right-hand rule.
func (M *Molecule) ApplyRotationAboutAxis(theta float64, axis, origin *v3.Matrix, conformer ...int) *Molecule {
	return M.rotateAbout(v3.AxisAngle(axis, theta), origin, conformer)
}

// ApplyRotationBetweenVectors applies, about origin, the minimal rotation
// that takes the direction of start onto the direction of target.
// Antiparallel vectors get a rotation of pi about a fixed axis orthogonal to start.
func (M *Molecule) ApplyRotationBetweenVectors(start, target, origin *v3.Matrix, conformer ...int) *Molecule {
	return M.rotateAbout(v3.RotationBetween(start, target), origin, conformer)
}

// ApplyRotationToMinimizeTheta rotates the conformer about axis, through
// origin, by the angle that best aligns start with target. Only rotations
// about axis are considered, so both vectors are projected on the plane
// orthogonal to axis, and of the two signed rotations by the angle between
// the projections, the one leaving the smaller angle is applied.
// Nothing is done if start has non-finite components, which happens with
// vectors obtained from planar or otherwise degenerate geometries, or if
// start is parallel to axis.
func (M *Molecule) ApplyRotationToMinimizeTheta(start, target, axis, origin *v3.Matrix, conformer ...int) *Molecule {
	if !start.IsFinite() {
		return M
	}
	//take the problem to a frame where axis is z and drop
	//the z components.
	toZ := v3.RotationBetween(axis, v3.Vec(0, 0, 1))
	tstart := v3.Zeros(1)
	tstart.Rotate(start, toZ)
	tstart.Set(0, 2, 0)
	if tstart.Norm(2) < parallelTol {
		return M
	}
	tend := v3.Zeros(1)
	tend.Rotate(target, toZ)
	tend.Set(0, 2, 0)
	angle := v3.Angle(tstart, tend)
	z := v3.Vec(0, 0, 1)
	r1 := v3.Zeros(1)
	r1.Rotate(tstart, v3.AxisAngle(z, angle))
	r2 := v3.Zeros(1)
	r2.Rotate(tstart, v3.AxisAngle(z, -angle))
	if v3.Angle(r2, tend) < v3.Angle(r1, tend) {
		angle *= -1
	}
	return M.rotateAbout(v3.AxisAngle(axis, angle), origin, conformer)
}

func (M *Molecule) rotateAbout(rot mat.Matrix, origin *v3.Matrix, conformer []int) *Molecule {
	c := M.conformer(conformer)
	c.SubVec(c, origin)
	c.Rotate(c, rot)
	c.AddVec(c, origin)
	return M
}

// SetCentroid displaces the conformer so the centroid of the atoms in atomIDs
// (all of them if nil) is at position. Relative positions are not changed.
func (M *Molecule) SetCentroid(position *v3.Matrix, atomIDs []int, conformer ...int) *Molecule {
	cen := M.Centroid(atomIDs, conformer...)
	disp := v3.Zeros(1)
	disp.Sub(position.View(0, 0, 1, 3).Dense, cen.Dense)
	return M.ApplyDisplacement(disp, conformer...)
}
