/*
 * cage_test.go, part of gocage.
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

package cage_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cache"
	"github.com/gocage/gocage/cage"
	"github.com/gocage/gocage/chemjson"
	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/similarity"
	"github.com/gocage/gocage/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/mat"
)

func unitsFor(Te *testing.T, dir string) (*units.BuildingBlock, *units.Linker) {
	F := units.NewFactory(&chemtest.Oracle{}, nil, zaptest.NewLogger(Te))
	bb, err := F.BuildingBlock(chemtest.WriteChain(Te, dir, "amine/tren.mol", 7, 6, 6, 7), true)
	require.NoError(Te, err)
	lk, err := F.Linker(chemtest.WriteChain(Te, dir, "aldehyde/dial.mol", 6, 8), true)
	require.NoError(Te, err)
	return bb, lk
}

func TestCageIdentity(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	A := &chemtest.Assembler{}
	B := cage.NewBuilder(A, nil, zaptest.NewLogger(Te))
	ctx := context.Background()
	c1, err := B.Cage(ctx, bb, lk, "FourPlusSix", filepath.Join(dir, "c1.mol"), true)
	require.NoError(Te, err)
	assert.Equal(Te, 6, c1.Mol.Len())
	assert.Equal(Te, bb.Key()+"#"+lk.Key()+"#FourPlusSix", c1.Key())
	written, err := chem.MolFileRead(c1.File)
	require.NoError(Te, err)
	assert.Equal(Te, 6, written.Len())
	//the output file is not part of the identity
	c2, err := B.Cage(ctx, bb, lk, "FourPlusSix", filepath.Join(dir, "c2.mol"), true)
	require.NoError(Te, err)
	assert.Same(Te, c1, c2)
	//the pristine and the heavy versions
	assert.Equal(Te, int32(2), A.Calls.Load())
	c3, err := B.Cage(ctx, bb, lk, "FourPlusSix", filepath.Join(dir, "c3.mol"), false)
	require.NoError(Te, err)
	assert.NotSame(Te, c1, c3)
	assert.True(Te, cage.Same(c1, c3))
	assert.Equal(Te, int32(4), A.Calls.Load())
	c4, err := B.Cage(ctx, bb, lk, "EightPlusTwelve", filepath.Join(dir, "c4.mol"), true)
	require.NoError(Te, err)
	assert.False(Te, cage.Same(c1, c4))
	assert.False(Te, cage.Same(c1, nil))
	assert.Same(Te, &bb.Unit, c1.Unit(cage.RoleBB))
	assert.Same(Te, &lk.Unit, c1.Unit(cage.RoleLK))
}

func TestCageHeavy(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	B := cage.NewBuilder(&chemtest.Assembler{}, nil, nil)
	c, err := B.Cage(context.Background(), bb, lk, "FourPlusSix", filepath.Join(dir, "c1.mol"), false)
	require.NoError(Te, err)
	assert.Equal(Te, "[N][C][C][N][C][O]5", c.PristSmiles)
	assert.Equal(Te, "[Rh][C][C][Rh][Y][O]5", c.HeavySmiles)
	require.Equal(Te, filepath.Join(dir, "c1_HEAVY.mol"), c.HeavyFile())
	heavy, err := chem.MolFileRead(c.HeavyFile())
	require.NoError(Te, err)
	assert.Equal(Te, c.Heavy.Atoms(), heavy.Atoms())
	assert.Equal(Te, 45, heavy.Atom(0).Z)
	assert.Equal(Te, 39, heavy.Atom(4).Z)
	prist, err := chem.MolFileRead(c.File)
	require.NoError(Te, err)
	assert.Equal(Te, 7, prist.Atom(0).Z)
	//no functional group in the linker, so no heavy cage
	F := units.NewFactory(&chemtest.Oracle{}, nil, nil)
	plain, err := F.Linker(chemtest.WriteChain(Te, dir, "plain.mol", 6, 6), true)
	require.NoError(Te, err)
	c, err = B.Cage(context.Background(), bb, plain, "FourPlusSix", filepath.Join(dir, "c2.mol"), false)
	require.NoError(Te, err)
	assert.Nil(Te, c.Heavy)
	assert.Empty(Te, c.HeavySmiles)
	assert.Empty(Te, c.HeavyFile())
	assert.NoFileExists(Te, filepath.Join(dir, "c2_HEAVY.mol"))
	assert.Equal(Te, "[N][C][C][N][C][C]5", c.PristSmiles)
	//nothing is written without a file
	c, err = B.Cage(context.Background(), bb, lk, "FourPlusSix", "", false)
	require.NoError(Te, err)
	assert.NotNil(Te, c.Heavy)
	assert.Empty(Te, c.HeavyFile())
}

func TestSimilarConcurrent(Te *testing.T) {
	c := new(cage.Cage)
	var calls atomic.Int32
	rank := func() ([]string, error) {
		calls.Add(1)
		return []string{"x.mol"}, nil
	}
	curs := make([]*similarity.Cursor, 8)
	var wg sync.WaitGroup
	for i := range curs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cur, err := c.Similar(cage.RoleLK, rank)
			assert.NoError(Te, err)
			curs[i] = cur
		}()
	}
	wg.Wait()
	assert.Equal(Te, int32(1), calls.Load())
	for _, cur := range curs {
		assert.Same(Te, curs[0], cur)
	}
}

func TestCageErrors(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	A := &chemtest.Assembler{}
	B := cage.NewBuilder(A, nil, nil)
	ctx := context.Background()
	_, err := B.Cage(ctx, bb, nil, "FourPlusSix", "", true)
	assert.True(Te, errors.Is(err, cache.ErrStructuralKey))
	_, err = B.Cage(ctx, bb, lk, "", "", true)
	assert.True(Te, errors.Is(err, cache.ErrStructuralKey))
	_, err = B.Cage(ctx, bb, lk, "bad_topology", "", true)
	assert.Error(Te, err)
	//failures are not cached
	_, err = B.Cage(ctx, bb, lk, "bad_topology", "", true)
	assert.Error(Te, err)
	assert.Equal(Te, int32(2), A.Calls.Load())
	_, err = cage.NewBuilder(nil, nil, nil).Cage(ctx, bb, lk, "SixPlusNine", "", true)
	assert.Error(Te, err)
}

type shifter struct{}

func (shifter) Optimize(ctx context.Context, m *chem.Molecule) error {
	pos := m.PositionMatrix()
	for i := 0; i < pos.NVecs(); i++ {
		pos.Set(i, 2, 1)
	}
	return m.SetPositionMatrix(pos)
}

func TestCageOptimize(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	B := cage.NewBuilder(&chemtest.Assembler{}, shifter{}, nil)
	c, err := B.Cage(context.Background(), bb, lk, "TwoPlusThree", filepath.Join(dir, "opt.mol"), false)
	require.NoError(Te, err)
	assert.Equal(Te, 1.0, c.Mol.PositionMatrix().At(3, 2))
	written, err := chem.MolFileRead(c.File)
	require.NoError(Te, err)
	assert.Equal(Te, 1.0, written.PositionMatrix().At(3, 2))
}

func TestSimilarCursor(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	B := cage.NewBuilder(&chemtest.Assembler{}, nil, nil)
	c, err := B.Cage(context.Background(), bb, lk, "FourPlusSix", filepath.Join(dir, "c.mol"), true)
	require.NoError(Te, err)
	assert.Nil(Te, c.SimilarBB())
	calls := 0
	rank := func() ([]string, error) {
		calls++
		return []string{"x.mol", "y.mol"}, nil
	}
	cur, err := c.Similar(cage.RoleBB, rank)
	require.NoError(Te, err)
	again, err := c.Similar(cage.RoleBB, rank)
	require.NoError(Te, err)
	assert.Same(Te, cur, again)
	assert.Same(Te, cur, c.SimilarBB())
	assert.Equal(Te, 1, calls)
	assert.Nil(Te, c.SimilarLK())
	_, err = c.Similar(cage.RoleLK, func() ([]string, error) { return nil, errors.New("no database") })
	assert.Error(Te, err)
	assert.Nil(Te, c.SimilarLK())
}

func TestCageJSON(Te *testing.T) {
	dir := Te.TempDir()
	bb, lk := unitsFor(Te, dir)
	B := cage.NewBuilder(&chemtest.Assembler{}, nil, nil)
	c, err := B.Cage(context.Background(), bb, lk, "FourPlusSix", filepath.Join(dir, "c.mol"), true)
	require.NoError(Te, err)
	cur, err := c.Similar(cage.RoleLK, func() ([]string, error) { return []string{"a.mol"}, nil })
	require.NoError(Te, err)
	path := filepath.Join(dir, "c.json.gz")
	require.NoError(Te, chemjson.Dump(path, c))
	v, err := chemjson.Load(path)
	require.NoError(Te, err)
	read, ok := v.(*cage.Cage)
	require.True(Te, ok)
	assert.NotSame(Te, c, read)
	assert.True(Te, cage.Same(c, read))
	assert.Equal(Te, c.File, read.File)
	assert.Equal(Te, c.Mol.Atoms(), read.Mol.Atoms())
	assert.True(Te, mat.EqualApprox(c.Mol.PositionMatrix(), read.Mol.PositionMatrix(), 1e-4))
	assert.Equal(Te, c.PristSmiles, read.PristSmiles)
	assert.Equal(Te, c.HeavySmiles, read.HeavySmiles)
	require.NotNil(Te, read.Heavy)
	assert.Equal(Te, c.Heavy.Atoms(), read.Heavy.Atoms())
	assert.Equal(Te, c.HeavyFile(), read.HeavyFile())
	//cursors are not saved
	assert.Nil(Te, read.SimilarLK())
	canon, err := B.Update(read)
	require.NoError(Te, err)
	assert.Same(Te, c, canon)
	assert.Same(Te, cur, canon.SimilarLK())
	assert.Same(Te, bb, canon.BB)
}
