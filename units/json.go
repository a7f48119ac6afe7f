/*
 * json.go, part of gocage.
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

package units

import (
	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/chemjson"
)

func (U *Unit) Molecule() *chem.Molecule { return U.prist }

// Attrs returns the attributes saved along with the pristine molecule
// when the unit is dumped.
func (U *Unit) Attrs() (map[string]any, error) {
	ret := map[string]any{
		"key":          U.key,
		"prist_file":   U.pristFile,
		"prist_smiles": U.pristSmiles,
	}
	if U.funcGrp != nil {
		ret["func_grp"] = U.funcGrp
		ret["fg_atoms"] = U.fgAtoms
		ret["heavy_file"] = U.heavyFile
		ret["heavy_smiles"] = U.heavySmiles
		ret["heavy"] = chemjson.NewRecord("Molecule", U.heavy)
	}
	return ret, nil
}

func (B *BuildingBlock) Class() string { return "BuildingBlock" }

func (L *Linker) Class() string { return "Linker" }

// UnitFromRecord rebuilds the unit data in a BuildingBlock or
// Linker record.
func UnitFromRecord(rec *chemjson.Record) (*Unit, error) {
	var err error
	U := new(Unit)
	U.prist, err = chemjson.MoleculeFromRecord(rec)
	if err != nil {
		return nil, err
	}
	for name, v := range map[string]any{
		"key":          &U.key,
		"prist_file":   &U.pristFile,
		"prist_smiles": &U.pristSmiles,
		"fg_atoms":     &U.fgAtoms,
		"heavy_file":   &U.heavyFile,
		"heavy_smiles": &U.heavySmiles,
	} {
		if _, err := rec.Attr(name, v); err != nil {
			return nil, err
		}
	}
	fg := new(FuncGroup)
	ok, err := rec.Attr("func_grp", fg)
	if err != nil {
		return nil, err
	}
	if ok {
		U.funcGrp = fg
	}
	heavy := new(chemjson.Record)
	ok, err = rec.Attr("heavy", heavy)
	if err != nil {
		return nil, err
	}
	if ok {
		U.heavy, err = chemjson.MoleculeFromRecord(heavy)
		if err != nil {
			return nil, err
		}
	}
	return U, nil
}

func init() {
	chemjson.MustRegister("BuildingBlock", func(rec *chemjson.Record) (any, error) {
		u, err := UnitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		return &BuildingBlock{Unit: *u}, nil
	})
	chemjson.MustRegister("Linker", func(rec *chemjson.Record) (any, error) {
		u, err := UnitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		return &Linker{Unit: *u}, nil
	})
}
