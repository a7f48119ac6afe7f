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

package cage

import (
	"fmt"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/chemjson"
	"github.com/gocage/gocage/units"
)

func (C *Cage) Class() string { return "Cage" }

func (C *Cage) Molecule() *chem.Molecule { return C.Mol }

// Attrs returns the topology, file, key and SMILES of the cage, and the
// records of its units and of its heavy version.
func (C *Cage) Attrs() (map[string]any, error) {
	bb, err := chemjson.ToRecord(C.BB)
	if err != nil {
		return nil, err
	}
	lk, err := chemjson.ToRecord(C.LK)
	if err != nil {
		return nil, err
	}
	ret := map[string]any{
		"key":          C.key,
		"topology":     C.Topology,
		"file":         C.File,
		"prist_smiles": C.PristSmiles,
		"bb":           bb,
		"lk":           lk,
	}
	if C.Heavy != nil {
		ret["heavy"] = chemjson.NewRecord("Molecule", C.Heavy)
		ret["heavy_smiles"] = C.HeavySmiles
	}
	return ret, nil
}

func cageFromRecord(rec *chemjson.Record) (any, error) {
	var err error
	C := &Cage{cursors: new(cursors)}
	C.Mol, err = chemjson.MoleculeFromRecord(rec)
	if err != nil {
		return nil, err
	}
	for name, v := range map[string]*string{
		"key":          &C.key,
		"topology":     &C.Topology,
		"file":         &C.File,
		"prist_smiles": &C.PristSmiles,
		"heavy_smiles": &C.HeavySmiles,
	} {
		if _, err := rec.Attr(name, v); err != nil {
			return nil, err
		}
	}
	heavy := new(chemjson.Record)
	ok, err := rec.Attr("heavy", heavy)
	if err != nil {
		return nil, err
	}
	if ok {
		if C.Heavy, err = chemjson.MoleculeFromRecord(heavy); err != nil {
			return nil, err
		}
	}
	for name, role := range map[string]Role{"bb": RoleBB, "lk": RoleLK} {
		r := new(chemjson.Record)
		if _, err := rec.Attr(name, r); err != nil {
			return nil, err
		}
		u, err := chemjson.FromRecord(r)
		if err != nil {
			return nil, err
		}
		if role == RoleBB {
			C.BB, ok = u.(*units.BuildingBlock)
		} else {
			C.LK, ok = u.(*units.Linker)
		}
		if !ok {
			return nil, fmt.Errorf("cage: the %s record has class %s", role, r.Class)
		}
	}
	return C, nil
}

func init() {
	chemjson.MustRegister("Cage", cageFromRecord)
}
