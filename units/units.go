/*
 * units.go, part of gocage.
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

// Package units implements the structural units of a cage, building
// blocks and linkers. A unit keeps the pristine molecule read from its
// file and a substituted ("heavy") version, where the atoms of its
// functional group are replaced by a heavy placeholder atom, so cages can
// be assembled without caring about the real chemistry at the joints.
package units

import (
	"fmt"
	"path/filepath"
	"strings"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cache"
	v3 "github.com/gocage/gocage/v3"
	"go.uber.org/zap"
)

// Oracle is the interface to an external chemistry toolkit.
type Oracle interface {
	//ReadFile reads a structure file, with bonds.
	ReadFile(path string) (*chem.Molecule, error)
	//Smiles returns a canonical, isomeric SMILES with all H explicit.
	Smiles(m *chem.Molecule) (string, error)
	//Matches returns the atom IDs of each match of smarts in m.
	Matches(m *chem.Molecule, smarts string) ([][]int, error)
	//Substitute replaces every match of smarts in m with replacement.
	Substitute(m *chem.Molecule, smarts, replacement string) (*chem.Molecule, error)
}

// NoFuncGroup is used in identity keys for units without a functional group.
const NoFuncGroup = "none"

// Unit is the data shared by building blocks and linkers. It is not
// changed after construction, and its accessors return copies.
type Unit struct {
	key         string
	pristFile   string
	prist       *chem.Molecule
	pristSmiles string
	funcGrp     *FuncGroup
	fgAtoms     [][]int
	heavy       *chem.Molecule
	heavyFile   string
	heavySmiles string
}

// Key returns the identity key of the unit.
func (U *Unit) Key() string { return U.key }

// PristFile returns the absolute path of the file the unit was read from.
func (U *Unit) PristFile() string { return U.pristFile }

// Prist returns a copy of the pristine molecule.
func (U *Unit) Prist() *chem.Molecule { return copyMol(U.prist) }

func (U *Unit) PristSmiles() string { return U.pristSmiles }

// FuncGrp returns the functional group of the unit, or nil.
func (U *Unit) FuncGrp() *FuncGroup {
	if U.funcGrp == nil {
		return nil
	}
	g := *U.funcGrp
	return &g
}

// FGAtoms returns the atom IDs of each match of the functional group
// in the pristine molecule.
func (U *Unit) FGAtoms() [][]int {
	ret := make([][]int, len(U.fgAtoms))
	for i, m := range U.fgAtoms {
		ret[i] = append([]int(nil), m...)
	}
	return ret
}

// Heavy returns a copy of the substituted molecule, or nil if the unit
// has no functional group.
func (U *Unit) Heavy() *chem.Molecule { return copyMol(U.heavy) }

// HeavyFile returns the path of the file with the substituted molecule,
// or "" if the unit has no functional group.
func (U *Unit) HeavyFile() string { return U.heavyFile }

func (U *Unit) HeavySmiles() string { return U.heavySmiles }

// ShiftedHeavy returns a copy of the substituted molecule, with all its
// atoms displaced by disp. The unit is not changed.
func (U *Unit) ShiftedHeavy(disp *v3.Matrix) *chem.Molecule {
	h := U.Heavy()
	if h == nil {
		return nil
	}
	return h.ApplyDisplacement(disp)
}

// HeavyIDs returns the IDs of the heavy placeholder atoms in the
// substituted molecule.
func (U *Unit) HeavyIDs() []int {
	if U.heavy == nil || U.funcGrp == nil {
		return nil
	}
	var ret []int
	for i := 0; i < U.heavy.Len(); i++ {
		if U.heavy.Atom(i).Z == U.funcGrp.HeavyZ {
			ret = append(ret, i)
		}
	}
	return ret
}

// Same returns true if both units have the same identity key.
func (U *Unit) Same(o *Unit) bool {
	return U != nil && o != nil && U.key == o.key
}

func copyMol(m *chem.Molecule) *chem.Molecule {
	if m == nil {
		return nil
	}
	return m.Copy()
}

// BuildingBlock is the unit at the vertices of a cage.
type BuildingBlock struct {
	Unit
}

// Linker is the unit that joins building blocks.
type Linker struct {
	Unit
}

var (
	bbCache = cache.New[BuildingBlock]("BuildingBlock")
	lkCache = cache.New[Linker]("Linker")
)

// Factory builds units. Oracle and Registry are required; a nil Log
// means no logging.
type Factory struct {
	Oracle   Oracle
	Registry *Registry
	Log      *zap.Logger
}

// NewFactory returns a factory with the given oracle and registry. A nil
// registry means the default one.
func NewFactory(oracle Oracle, registry *Registry, log *zap.Logger) *Factory {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Factory{Oracle: oracle, Registry: registry, Log: log}
}

func (F *Factory) log() *zap.Logger {
	if F.Log == nil {
		return zap.NewNop()
	}
	return F.Log
}

// Key returns the identity key for a unit read from path: the absolute
// path and the name of the functional group matched by path.
func (F *Factory) Key(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", cache.ErrStructuralKey)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", path, err, cache.ErrStructuralKey)
	}
	fg := NoFuncGroup
	if g := F.registry().Match(path); g != nil {
		fg = g.Name
	}
	return abs + "|" + fg, nil
}

func (F *Factory) registry() *Registry {
	if F.Registry == nil {
		return DefaultRegistry()
	}
	return F.Registry
}

// BuildingBlock returns the building block for the structure file path.
// With useCache, an existing live building block for the same file is
// returned, and nothing is read or written.
func (F *Factory) BuildingBlock(path string, useCache bool) (*BuildingBlock, error) {
	key, err := F.Key(path)
	if err != nil {
		return nil, err
	}
	return bbCache.GetOrCreate(key, useCache, func() (*BuildingBlock, error) {
		u, err := F.build(path, key)
		if err != nil {
			return nil, err
		}
		return &BuildingBlock{Unit: *u}, nil
	})
}

// Linker is like BuildingBlock, for linkers.
func (F *Factory) Linker(path string, useCache bool) (*Linker, error) {
	key, err := F.Key(path)
	if err != nil {
		return nil, err
	}
	return lkCache.GetOrCreate(key, useCache, func() (*Linker, error) {
		u, err := F.build(path, key)
		if err != nil {
			return nil, err
		}
		return &Linker{Unit: *u}, nil
	})
}

// UpdateBuildingBlock reconciles bb, built elsewhere (e.g. unloaded from
// JSON) with the cache, and returns the canonical instance.
func UpdateBuildingBlock(bb *BuildingBlock) (*BuildingBlock, error) {
	return bbCache.Update(bb.key, bb)
}

// UpdateLinker is like UpdateBuildingBlock, for linkers.
func UpdateLinker(lk *Linker) (*Linker, error) {
	return lkCache.Update(lk.key, lk)
}

// HeavyPath returns the path of the substituted version of the structure
// file path for the functional group fgname. Formats other than mol and sdf
// are replaced by mol.
func HeavyPath(path, fgname string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	switch strings.ToLower(ext) {
	case ".mol", ".sdf":
	default:
		ext = ".mol"
	}
	return base + "_HEAVY_" + strings.ReplaceAll(fgname, " ", "_") + ext
}

func (F *Factory) build(path, key string) (*Unit, error) {
	if F.Oracle == nil {
		return nil, fmt.Errorf("units: no chemistry oracle to read %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	log := F.log().With(zap.String("file", abs))
	U := &Unit{key: key, pristFile: abs}
	U.prist, err = F.Oracle.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}
	U.pristSmiles, err = F.Oracle.Smiles(U.prist)
	if err != nil {
		return nil, fmt.Errorf("smiles for %s: %w", abs, err)
	}
	U.funcGrp = F.registry().Match(path)
	if U.funcGrp == nil {
		log.Debug("unit without functional group")
		return U, nil
	}
	U.fgAtoms, err = F.Oracle.Matches(U.prist, U.funcGrp.SmartsStart)
	if err != nil {
		return nil, fmt.Errorf("matching %s in %s: %w", U.funcGrp.Name, abs, err)
	}
	U.heavy, err = F.Oracle.Substitute(U.prist, U.funcGrp.SmartsStart, U.funcGrp.SmartsEnd)
	if err != nil {
		return nil, fmt.Errorf("substituting %s in %s: %w", U.funcGrp.Name, abs, err)
	}
	U.heavyFile = HeavyPath(abs, U.funcGrp.Name)
	if err := U.heavy.Write(U.heavyFile, nil); err != nil {
		return nil, fmt.Errorf("writing %s: %w", U.heavyFile, err)
	}
	U.heavySmiles, err = F.Oracle.Smiles(U.heavy)
	if err != nil {
		return nil, fmt.Errorf("smiles for %s: %w", U.heavyFile, err)
	}
	log.Debug("unit built",
		zap.String("func_grp", U.funcGrp.Name),
		zap.Int("matches", len(U.fgAtoms)),
		zap.String("heavy_file", U.heavyFile))
	return U, nil
}
