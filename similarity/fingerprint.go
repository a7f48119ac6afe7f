/*
 * fingerprint.go, part of gocage.
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

// Package similarity ranks the molecules of a database by their
// similarity to a target, and hands them out in order through cursors.
package similarity

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math/bits"
	"slices"

	"github.com/cespare/xxhash/v2"
	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/chemgraph"
)

// FPBits is the width of a Fingerprint.
const FPBits = 2048

// DefaultRadius is the number of neighbourhood iterations used when a
// radius is not given.
const DefaultRadius = 2

// Fingerprint is a fixed-width bitset.
type Fingerprint [FPBits / 64]uint64

func (F *Fingerprint) Set(i uint64) {
	i %= FPBits
	F[i/64] |= 1 << (i % 64)
}

func (F *Fingerprint) Has(i uint64) bool {
	i %= FPBits
	return F[i/64]&(1<<(i%64)) != 0
}

// Count returns the number of bits set.
func (F *Fingerprint) Count() int {
	n := 0
	for _, w := range F {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bytes returns the fingerprint as little-endian words.
func (F *Fingerprint) Bytes() []byte {
	ret := make([]byte, 0, FPBits/8)
	for _, w := range F {
		ret = binary.LittleEndian.AppendUint64(ret, w)
	}
	return ret
}

// FingerprintFromBytes is the inverse of Bytes.
func FingerprintFromBytes(b []byte) (*Fingerprint, error) {
	if len(b) != FPBits/8 {
		return nil, fmt.Errorf("similarity: fingerprint of %d bytes, want %d", len(b), FPBits/8)
	}
	F := new(Fingerprint)
	for i := range F {
		F[i] = binary.LittleEndian.Uint64(b[8*i:])
	}
	return F, nil
}

// Tanimoto returns the Tanimoto (Jaccard) coefficient of a and b.
// Two empty fingerprints score 0.
func Tanimoto(a, b *Fingerprint) float64 {
	var and, or int
	for i := range a {
		and += bits.OnesCount64(a[i] & b[i])
		or += bits.OnesCount64(a[i] | b[i])
	}
	if or == 0 {
		return 0
	}
	return float64(and) / float64(or)
}

type hasher struct {
	d   *xxhash.Digest
	buf []byte
}

func (H *hasher) sum(vals ...uint64) uint64 {
	H.buf = H.buf[:0]
	for _, v := range vals {
		H.buf = binary.LittleEndian.AppendUint64(H.buf, v)
	}
	H.d.Reset()
	H.d.Write(H.buf)
	return H.d.Sum64()
}

// Circular returns an extended-connectivity fingerprint of m. Each atom
// starts with an identifier hashed from its atomic number, degree and
// formal charge. Every iteration, up to radius, rehashes it with the
// sorted (bond order, identifier) pairs of its neighbours. All the
// identifiers produced set a bit.
func Circular(m *chem.Molecule, radius int) *Fingerprint {
	F := new(Fingerprint)
	if m == nil || m.Len() == 0 {
		return F
	}
	if radius < 0 {
		radius = DefaultRadius
	}
	T := chemgraph.TopologyFromChem(m, nil)
	H := &hasher{d: xxhash.New()}
	ids := make([]uint64, T.Len())
	for i := range ids {
		at := T.Atom(i)
		ids[i] = H.sum(uint64(at.Z), uint64(at.Degree()), uint64(int64(at.Charge)))
		F.Set(ids[i])
	}
	next := make([]uint64, len(ids))
	var env []uint64
	for r := 1; r <= radius; r++ {
		for i := range ids {
			at := T.Atom(i)
			pairs := make([][2]uint64, 0, at.Degree())
			for _, b := range at.Bonds {
				pairs = append(pairs, [2]uint64{uint64(b.Order), ids[b.CrossAtom(at).AtID()]})
			}
			slices.SortFunc(pairs, func(x, y [2]uint64) int {
				if x[0] != y[0] {
					return cmp.Compare(x[0], y[0])
				}
				return cmp.Compare(x[1], y[1])
			})
			env = append(env[:0], uint64(r), ids[i])
			for _, p := range pairs {
				env = append(env, p[0], p[1])
			}
			next[i] = H.sum(env...)
			F.Set(next[i])
		}
		ids, next = next, ids
	}
	return F
}
