/*
 * chemtest.go, part of gocage.
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

// Package chemtest has stand-ins for the external chemistry programs,
// and molecule fixtures, for the tests of the other packages.
package chemtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/units"
	v3 "github.com/gocage/gocage/v3"
)

// Chain returns a molecule with atoms of the given atomic numbers,
// 1.5 A apart along x, each bonded to the next.
func Chain(Te testing.TB, zs ...int) *chem.Molecule {
	Te.Helper()
	atoms := make([]*chem.Atom, len(zs))
	bonds := make([]*chem.Bond, 0, len(zs))
	coords := make([]float64, 0, 3*len(zs))
	for i, z := range zs {
		atoms[i] = &chem.Atom{ID: i, Z: z}
		coords = append(coords, 1.5*float64(i), 0, 0)
		if i > 0 {
			bonds = append(bonds, &chem.Bond{At1: i - 1, At2: i, Order: chem.Single})
		}
	}
	if len(zs) == 0 {
		m, err := chem.NewMolecule(nil, nil)
		if err != nil {
			Te.Fatal(err)
		}
		return m
	}
	c, err := v3.NewMatrix(coords)
	if err != nil {
		Te.Fatal(err)
	}
	m, err := chem.NewMolecule(atoms, bonds, c)
	if err != nil {
		Te.Fatal(err)
	}
	return m
}

// WriteChain writes Chain(zs...) to dir/name, creating the directories
// needed, and returns the path.
func WriteChain(Te testing.TB, dir, name string, zs ...int) string {
	Te.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		Te.Fatal(err)
	}
	if err := Chain(Te, zs...).Write(path, nil); err != nil {
		Te.Fatal(err)
	}
	return path
}

// Oracle is a units.Oracle that only knows about the groups in its
// registry: a group matches every atom with its target atomic number,
// and substitution turns those atoms into the heavy ones.
type Oracle struct {
	Registry *units.Registry
	Reads    atomic.Int32
}

func (O *Oracle) registry() *units.Registry {
	if O.Registry == nil {
		return units.DefaultRegistry()
	}
	return O.Registry
}

func (O *Oracle) ReadFile(path string) (*chem.Molecule, error) {
	O.Reads.Add(1)
	return chem.MolFileRead(path)
}

// Smiles returns the element symbols in brackets, in atom order, followed
// by the number of bonds. It is unique enough for the tests.
func (O *Oracle) Smiles(m *chem.Molecule) (string, error) {
	var b strings.Builder
	for _, a := range m.Atoms() {
		fmt.Fprintf(&b, "[%s]", a.Symbol())
	}
	fmt.Fprintf(&b, "%d", m.NBonds())
	return b.String(), nil
}

func (O *Oracle) group(smarts string) (*units.FuncGroup, error) {
	for _, g := range O.registry().Groups {
		if g.SmartsStart == smarts {
			return &g, nil
		}
	}
	return nil, fmt.Errorf("chemtest: can't parse %q", smarts)
}

func (O *Oracle) Matches(m *chem.Molecule, smarts string) ([][]int, error) {
	g, err := O.group(smarts)
	if err != nil {
		return nil, err
	}
	var ret [][]int
	for _, a := range m.Atoms() {
		if a.Z == g.TargetZ {
			ret = append(ret, []int{a.ID})
		}
	}
	return ret, nil
}

func (O *Oracle) Substitute(m *chem.Molecule, smarts, replacement string) (*chem.Molecule, error) {
	g, err := O.group(smarts)
	if err != nil {
		return nil, err
	}
	if g.SmartsEnd != replacement {
		return nil, fmt.Errorf("chemtest: %q is not the replacement for %q", replacement, smarts)
	}
	atoms := m.Atoms()
	for _, a := range atoms {
		if a.Z == g.TargetZ {
			a.Z = g.HeavyZ
		}
	}
	return chem.NewMolecule(atoms, m.Bonds(), m.PositionMatrix())
}

// Assembler joins the building block and linker with a single bond
// between their first atoms, with the linker 5 A away along x. Topologies
// starting with "bad" fail. Its SMILES are those of Oracle.
type Assembler struct {
	Calls atomic.Int32
}

func (A *Assembler) Assemble(ctx context.Context, bb, lk *units.Unit, topology string, heavy bool) (*chem.Molecule, error) {
	A.Calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(topology, "bad") {
		return nil, fmt.Errorf("chemtest: topology %s can't be built", topology)
	}
	b, l := bb.Prist(), lk.Prist()
	if heavy {
		b, l = bb.Heavy(), lk.Heavy()
		if b == nil || l == nil {
			return nil, fmt.Errorf("chemtest: no heavy units for %s", topology)
		}
	}
	l.ApplyDisplacement(v3.Vec(5, 0, 0))
	return chem.Merge(b, l, &chem.Bond{At1: 0, At2: b.Len(), Order: chem.Single})
}

func (A *Assembler) Smiles(m *chem.Molecule) (string, error) {
	return new(Oracle).Smiles(m)
}
