/*
 * doc.go, part of gocage.
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

/*
Package chem is the main package of the gocage library. It provides the molecule
structure used to build and mutate candidate porous cages: a fixed graph of
atoms and bonds with any number of conformers, rigid-body transforms, shape
queries and reading/writing of structure files.

	**gocage Capabilities**

	Reads V3000 and V2000 MDL mol/sdf files and XYZ files.

	Writes V3000 mol/sdf, XYZ and PDB files, for all the atoms or a subset.

	Updates the positions of a conformer from mol, sdf, xyz and Turbomole coord
	files, and from any other format for which a reader is registered.

	Displaces and rotates conformers: about an axis, between two vectors, and
	about an axis so a vector gets as close as possible to another.

	Centroid, center of mass, principal direction, plane normal and maximum
	diameter of any subset of atoms.

The subpackages build on this one:

	v3: Nx3 matrices and rotation helpers.
	chemgraph: gonum graph view of a molecule.
	chemjson: JSON dump/load of molecules and the types built on them.
	cache: weak identity caches.
	units: building blocks and linkers with functional group substitution.
	cage: assembled cages.
	similarity: fingerprints and candidate databases.
	mutation: the mutation operators of the genetic algorithm.
	oracle: external programs (xtb, chemistry toolkits).
*/
package chem
