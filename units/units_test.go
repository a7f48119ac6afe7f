/*
 * units_test.go, part of gocage.
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

package units_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cache"
	"github.com/gocage/gocage/chemjson"
	"github.com/gocage/gocage/internal/chemtest"
	"github.com/gocage/gocage/units"
	v3 "github.com/gocage/gocage/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDefaultRegistry(Te *testing.T) {
	R := units.DefaultRegistry()
	require.NoError(Te, R.Validate())
	assert.Len(Te, R.Groups, 9)
	g := R.Match("/db/amine/ethylenediamine.mol")
	require.NotNil(Te, g)
	assert.Equal(Te, "amine", g.Name)
	assert.Equal(Te, 45, g.HeavyZ)
	//first in table order wins
	g = R.Match("/db/aldehyde/amine/x.mol")
	assert.Equal(Te, "aldehyde", g.Name)
	assert.Nil(Te, R.Match("/db/benzene.mol"))
	assert.Equal(Te, chem.Double, R.BondOrder("Y", "Rh"))
	assert.Equal(Te, chem.Double, R.BondOrder("Rh", "Mo"))
	assert.Equal(Te, chem.Single, R.BondOrder("Rh", "Ag"))
	assert.Equal(Te, "Pd", R.Group("nitroso").HeavySymbol)
	assert.Nil(Te, R.Group("ketone"))
	//what comes out is a copy
	g.Name = "changed"
	assert.Equal(Te, "aldehyde", R.Groups[0].Name)
}

func TestLoadRegistry(Te *testing.T) {
	dir := Te.TempDir()
	good := `
groups:
  - name: amine
    smarts_start: "[N]([H])[H]"
    smarts_end: "[Rh]"
    target_z: 7
    heavy_z: 45
    target_symbol: N
    heavy_symbol: Rh
  - name: aldehyde
    smarts_start: "C(=O)[H]"
    smarts_end: "[Y]"
    target_z: 6
    heavy_z: 39
    target_symbol: C
    heavy_symbol: "Y"
double_bonds:
  - [Rh, "Y"]
`
	path := filepath.Join(dir, "fg.yaml")
	require.NoError(Te, os.WriteFile(path, []byte(good), 0o644))
	R, err := units.LoadRegistry(path)
	require.NoError(Te, err)
	assert.Len(Te, R.Groups, 2)
	assert.Equal(Te, "[Rh]", R.Groups[0].SmartsEnd)
	assert.Equal(Te, chem.Double, R.BondOrder("Y", "Rh"))
	//the misspelled molybdenum is caught
	bad := good + `  - [Mb, Rh]
`
	require.NoError(Te, os.WriteFile(path, []byte(bad), 0o644))
	_, err = units.LoadRegistry(path)
	assert.True(Te, errors.Is(err, units.ErrRegistry))
	require.NoError(Te, os.WriteFile(path, []byte("groups: [1, 2"), 0o644))
	_, err = units.LoadRegistry(path)
	assert.True(Te, errors.Is(err, units.ErrRegistry))
}

func TestHeavyPath(Te *testing.T) {
	assert.Equal(Te, "/a/b/x_HEAVY_amine.mol", units.HeavyPath("/a/b/x.mol", "amine"))
	assert.Equal(Te, "/a/x_HEAVY_carboxylic_acid.sdf", units.HeavyPath("/a/x.sdf", "carboxylic acid"))
	assert.Equal(Te, "/a/x_HEAVY_amine.mol", units.HeavyPath("/a/x.mae", "amine"))
}

func TestBuildingBlock(Te *testing.T) {
	dir := Te.TempDir()
	path := chemtest.WriteChain(Te, dir, "amine/diamine.mol", 7, 6, 6, 7)
	oracle := &chemtest.Oracle{}
	F := units.NewFactory(oracle, nil, zaptest.NewLogger(Te))
	bb, err := F.BuildingBlock(path, true)
	require.NoError(Te, err)
	assert.Equal(Te, path+"|amine", bb.Key())
	assert.Equal(Te, path, bb.PristFile())
	assert.Equal(Te, "[N][C][C][N]3", bb.PristSmiles())
	assert.Equal(Te, "amine", bb.FuncGrp().Name)
	assert.Equal(Te, [][]int{{0}, {3}}, bb.FGAtoms())
	assert.Equal(Te, "[Rh][C][C][Rh]3", bb.HeavySmiles())
	assert.Equal(Te, []int{0, 3}, bb.HeavyIDs())
	assert.Equal(Te, filepath.Join(dir, "amine", "diamine_HEAVY_amine.mol"), bb.HeavyFile())
	heavy, err := chem.MolFileRead(bb.HeavyFile())
	require.NoError(Te, err)
	assert.Equal(Te, 45, heavy.Atom(3).Z)
	//accessors hand out copies
	bb.Prist().ApplyDisplacement(v3.Vec(1, 1, 1))
	assert.Equal(Te, 0.0, bb.Prist().PositionMatrix().At(0, 0))
	shifted := bb.ShiftedHeavy(v3.Vec(1, 0, 0))
	assert.Equal(Te, 1.0, shifted.PositionMatrix().At(0, 0))
	assert.Equal(Te, 0.0, bb.Heavy().PositionMatrix().At(0, 0))
}

func TestIdentity(Te *testing.T) {
	dir := Te.TempDir()
	path := chemtest.WriteChain(Te, dir, "aldehyde/dial.mol", 6, 8, 6)
	oracle := &chemtest.Oracle{}
	F := units.NewFactory(oracle, nil, nil)
	a, err := F.BuildingBlock(path, true)
	require.NoError(Te, err)
	b, err := F.BuildingBlock(path, true)
	require.NoError(Te, err)
	assert.Same(Te, a, b)
	assert.Equal(Te, int32(1), oracle.Reads.Load())
	c, err := F.BuildingBlock(path, false)
	require.NoError(Te, err)
	assert.NotSame(Te, a, c)
	assert.Equal(Te, a.Key(), c.Key())
	assert.Equal(Te, a.PristSmiles(), c.PristSmiles())
	assert.True(Te, a.Same(&c.Unit))
	assert.Equal(Te, int32(2), oracle.Reads.Load())
	//linkers have their own cache
	l, err := F.Linker(path, true)
	require.NoError(Te, err)
	assert.Equal(Te, a.Key(), l.Key())
	assert.Equal(Te, int32(3), oracle.Reads.Load())
	_, err = F.BuildingBlock("", true)
	assert.True(Te, errors.Is(err, cache.ErrStructuralKey))
}

func TestNoFuncGroup(Te *testing.T) {
	path := chemtest.WriteChain(Te, Te.TempDir(), "plain.mol", 6, 6)
	F := units.NewFactory(&chemtest.Oracle{}, nil, nil)
	lk, err := F.Linker(path, true)
	require.NoError(Te, err)
	assert.Equal(Te, path+"|"+units.NoFuncGroup, lk.Key())
	assert.Nil(Te, lk.FuncGrp())
	assert.Nil(Te, lk.Heavy())
	assert.Empty(Te, lk.HeavyFile())
	assert.Empty(Te, lk.FGAtoms())
	assert.Equal(Te, 2, lk.Prist().Len())
}

func TestUnitJSON(Te *testing.T) {
	dir := Te.TempDir()
	path := chemtest.WriteChain(Te, dir, "thiol/dithiol.mol", 16, 6, 16)
	F := units.NewFactory(&chemtest.Oracle{}, nil, nil)
	lk, err := F.Linker(path, true)
	require.NoError(Te, err)
	jpath := filepath.Join(dir, "lk.json.zst")
	require.NoError(Te, chemjson.Dump(jpath, lk))
	v, err := chemjson.Load(jpath)
	require.NoError(Te, err)
	read, ok := v.(*units.Linker)
	require.True(Te, ok)
	assert.NotSame(Te, lk, read)
	assert.Equal(Te, lk.Key(), read.Key())
	assert.Equal(Te, lk.FuncGrp(), read.FuncGrp())
	assert.Equal(Te, lk.FGAtoms(), read.FGAtoms())
	assert.Equal(Te, lk.HeavySmiles(), read.HeavySmiles())
	assert.Equal(Te, lk.Heavy().Atoms(), read.Heavy().Atoms())
	//reconciling the loaded copy gives back the cached instance, updated
	canon, err := units.UpdateLinker(read)
	require.NoError(Te, err)
	assert.Same(Te, lk, canon)
}
