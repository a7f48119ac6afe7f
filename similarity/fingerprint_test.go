/*
 * fingerprint_test.go, part of gocage.
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

package similarity_test

import (
	"testing"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircular(Te *testing.T) {
	a := similarity.Circular(chemtest.Chain(Te, 6, 6, 8), 2)
	b := similarity.Circular(chemtest.Chain(Te, 8, 6, 6), 2)
	//atom order doesn't matter
	assert.Equal(Te, *a, *b)
	assert.Greater(Te, a.Count(), 3)
	assert.Equal(Te, 1.0, similarity.Tanimoto(a, b))
	c := similarity.Circular(chemtest.Chain(Te, 6, 6, 7), 2)
	s := similarity.Tanimoto(a, c)
	assert.Greater(Te, s, 0.0)
	assert.Less(Te, s, 1.0)
	//a larger radius only adds bits
	r0 := similarity.Circular(chemtest.Chain(Te, 6, 6, 8), 0)
	assert.Less(Te, r0.Count(), a.Count())
	for i := uint64(0); i < similarity.FPBits; i++ {
		if r0.Has(i) {
			assert.True(Te, a.Has(i))
		}
	}
}

func TestTanimotoEmpty(Te *testing.T) {
	e := similarity.Circular(nil, 2)
	assert.Zero(Te, e.Count())
	assert.Equal(Te, 0.0, similarity.Tanimoto(e, e))
	a := similarity.Circular(chemtest.Chain(Te, 6), 2)
	assert.Equal(Te, 0.0, similarity.Tanimoto(a, e))
}

func TestCircularCharge(Te *testing.T) {
	m := chemtest.Chain(Te, 8, 6)
	atoms := m.Atoms()
	atoms[0].Charge = -1
	ion, err := chem.NewMolecule(atoms, m.Bonds(), m.PositionMatrix())
	require.NoError(Te, err)
	assert.NotEqual(Te, *similarity.Circular(m, 1), *similarity.Circular(ion, 1))
}

func TestFingerprintBytes(Te *testing.T) {
	a := similarity.Circular(chemtest.Chain(Te, 6, 7, 6, 8), 3)
	b, err := similarity.FingerprintFromBytes(a.Bytes())
	require.NoError(Te, err)
	assert.Equal(Te, a, b)
	_, err = similarity.FingerprintFromBytes([]byte{1, 2, 3})
	assert.Error(Te, err)
}
