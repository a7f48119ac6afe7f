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

//Package chemjson implements serialization and unserialization of
//gocage data types. A JSON record carries the atoms, bonds and
//conformers of a molecule, plus the extra attributes of the type
//built on it, tagged with a class name. Each class registers a loader
//so Load can rebuild the right type.
//Files ending in .zst are compressed with z-standard and files
//ending in .gz with gzip.
//chemjson also implements the line-delimited messages used to talk
//to external, non-Go programs via UNIX pipes.
package chemjson
