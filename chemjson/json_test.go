/*
 * json_test.go, part of gocage.
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

package chemjson

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chem "github.com/gocage/gocage"
	v3 "github.com/gocage/gocage/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func water(Te *testing.T) *chem.Molecule {
	atoms := []*chem.Atom{{ID: 0, Z: 8, Charge: -1}, {ID: 1, Z: 1}, {ID: 2, Z: 1}}
	bonds := []*chem.Bond{{At1: 0, At2: 1, Order: chem.Single}, {At1: 0, At2: 2, Order: chem.Single}}
	c, err := v3.NewMatrix([]float64{0, 0, 0, 0.96, 0, 0, -0.24, 0.93, 0})
	require.NoError(Te, err)
	mol, err := chem.NewMolecule(atoms, bonds, c)
	require.NoError(Te, err)
	c.Set(0, 2, 1)
	require.NoError(Te, mol.SetPositionMatrix(c, chem.NewConformer))
	return mol
}

type labeled struct {
	mol   *chem.Molecule
	Label string
	Tries int
}

func (L *labeled) Class() string            { return "labeled" }
func (L *labeled) Molecule() *chem.Molecule { return L.mol }
func (L *labeled) Attrs() (map[string]any, error) {
	return map[string]any{"label": L.Label, "tries": L.Tries}, nil
}

func init() {
	MustRegister("labeled", func(rec *Record) (any, error) {
		mol, err := MoleculeFromRecord(rec)
		if err != nil {
			return nil, err
		}
		L := &labeled{mol: mol}
		if _, err := rec.Attr("label", &L.Label); err != nil {
			return nil, err
		}
		if _, err := rec.Attr("tries", &L.Tries); err != nil {
			return nil, err
		}
		return L, nil
	})
}

func TestDumpLoad(Te *testing.T) {
	mol := water(Te)
	for _, name := range []string{"w.json", "w.json.zst", "w.json.gz"} {
		path := filepath.Join(Te.TempDir(), name)
		require.NoError(Te, Dump(path, Mol{mol}))
		v, err := Load(path)
		require.NoError(Te, err, name)
		read, ok := v.(*chem.Molecule)
		require.True(Te, ok)
		assert.Equal(Te, mol.Atoms(), read.Atoms())
		assert.Equal(Te, mol.Bonds(), read.Bonds())
		require.Equal(Te, 2, read.NConformers())
		for i := 0; i < 2; i++ {
			assert.Equal(Te, mol.PositionMatrix(i).RawMatrix().Data, read.PositionMatrix(i).RawMatrix().Data)
		}
	}
	//the compressed file really is compressed
	path := filepath.Join(Te.TempDir(), "w.zst")
	require.NoError(Te, Dump(path, Mol{mol}))
	data, err := os.ReadFile(path)
	require.NoError(Te, err)
	assert.False(Te, bytes.HasPrefix(data, []byte("{")))
}

func TestAttrs(Te *testing.T) {
	L := &labeled{mol: water(Te), Label: "wet", Tries: 3}
	path := filepath.Join(Te.TempDir(), "l.json")
	require.NoError(Te, Dump(path, L))
	v, err := Load(path)
	require.NoError(Te, err)
	assert.Equal(Te, "wet", v.(*labeled).Label)
	assert.Equal(Te, 3, v.(*labeled).Tries)
	//only the requested attributes
	require.NoError(Te, Dump(path, L, "tries"))
	v, err = Load(path)
	require.NoError(Te, err)
	assert.Equal(Te, "", v.(*labeled).Label)
	assert.Equal(Te, 3, v.(*labeled).Tries)
	assert.Error(Te, Dump(path, L, "nope"))
}

func TestRegistry(Te *testing.T) {
	err := Register("labeled", nil)
	assert.True(Te, errors.Is(err, ErrClassConflict))
	assert.Panics(Te, func() { MustRegister("Molecule", nil) })
	assert.Contains(Te, Classes(), "labeled")
	_, err = Decode(strings.NewReader(`{"Class":"Dragon","Atoms":[]}`))
	assert.True(Te, errors.Is(err, ErrUnknownClass))
	_, err = Decode(strings.NewReader(`{"Class":`))
	assert.True(Te, errors.Is(err, ErrIllFormatted))
}

func TestPipe(Te *testing.T) {
	var buf bytes.Buffer
	req := &Request{Job: "smiles", Molecules: []*Record{NewRecord("Molecule", water(Te))}}
	require.NoError(Te, Send(&buf, req))
	require.NoError(Te, Send(&buf, &Response{Err: &Error{Message: "no toolkit"}}))
	in := bufio.NewReader(&buf)
	got := new(Request)
	require.NoError(Te, Receive(in, got))
	assert.Equal(Te, "smiles", got.Job)
	mol, err := MoleculeFromRecord(got.Molecules[0])
	require.NoError(Te, err)
	assert.Equal(Te, 3, mol.Len())
	resp := new(Response)
	require.NoError(Te, Receive(in, resp))
	err = resp.RemoteError()
	assert.True(Te, errors.Is(err, ErrRemote))
	assert.Equal(Te, "no toolkit", err.Error())
	assert.Error(Te, Receive(in, resp))
}
