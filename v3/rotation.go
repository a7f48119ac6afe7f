/*
 * rotation.go, part of gocage.
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

package v3

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Normalize returns a unit vector with the direction of the first vector in v.
// A zero vector is returned unchanged.
func Normalize(v *Matrix) *Matrix {
	r := Zeros(1)
	r.Copy(v.View(0, 0, 1, 3).Dense)
	r.Unit(r)
	return r
}

// Angle returns the angle in radians between the first vectors of a and b.
// The cosine is clamped to [-1,1] so nearly (anti)parallel vectors don't give NaN.
func Angle(a, b *Matrix) float64 {
	na := a.View(0, 0, 1, 3).Norm(2)
	nb := b.View(0, 0, 1, 3).Norm(2)
	if na <= appzero || nb <= appzero {
		return 0
	}
	c := a.Dot(b) / (na * nb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// AxisAngle returns the matrix for a right-handed rotation of theta radians
// about axis, which does not need to be normalized.
func AxisAngle(axis *Matrix, theta float64) *mat.Dense {
	u := Normalize(axis).RawRowView(0)
	x, y, z := u[0], u[1], u[2]
	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c
	return mat.NewDense(3, 3, []float64{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	})
}

// RotationBetween returns the minimal rotation matrix that takes the
// direction of start onto the direction of target.
// If both are antiparallel, the rotation is of pi radians around an axis
// perpendicular to start, built from the Cartesian axis least aligned with start,
// so the result is always the same for the same input.
func RotationBetween(start, target *Matrix) *mat.Dense {
	s := Normalize(start)
	t := Normalize(target)
	axis := Zeros(1)
	axis.Cross(s, t)
	sin := axis.Norm(2)
	cos := s.Dot(t)
	if sin <= appzero {
		if cos > 0 {
			return eye3()
		}
		axis.Cross(s, leastAligned(s))
		return AxisAngle(axis, math.Pi)
	}
	return AxisAngle(axis, math.Atan2(sin, cos))
}

// Rotate puts in F the vectors of A rotated by the 3x3 matrix rot, i.e.
// each vector v becomes rot*v. F and A can be the same matrix.
func (F *Matrix) Rotate(A *Matrix, rot mat.Matrix) {
	r, c := rot.Dims()
	if r != 3 || c != 3 {
		panic(ErrNotRotation)
	}
	if F.NVecs() != A.NVecs() {
		panic(ErrShape)
	}
	//for row vectors, (R v^T)^T = v R^T
	tmp := mat.NewDense(A.NVecs(), 3, nil)
	tmp.Mul(A.Dense, rot.T())
	F.Copy(tmp)
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// leastAligned returns the Cartesian unit vector with the smallest
// absolute projection on v. Ties go to the first axis.
func leastAligned(v *Matrix) *Matrix {
	r := v.RawRowView(0)
	best := 0
	for i := 1; i < 3; i++ {
		if math.Abs(r[i]) < math.Abs(r[best]) {
			best = i
		}
	}
	e := Zeros(1)
	e.Set(0, best, 1)
	return e
}
