/*
 * funcgroup.go, part of gocage.
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
	"errors"
	"fmt"
	"os"
	"strings"

	chem "github.com/gocage/gocage"
	"gopkg.in/yaml.v3"
)

// ErrRegistry is wrapped by the errors of invalid functional group registries.
var ErrRegistry = errors.New("invalid functional group registry")

// FuncGroup describes a functional group and the heavy atom that replaces
// its target atom in the substituted version of a unit.
type FuncGroup struct {
	Name         string `yaml:"name" json:"name"`
	SmartsStart  string `yaml:"smarts_start" json:"smarts_start"` //pattern in the pristine molecule
	SmartsEnd    string `yaml:"smarts_end" json:"smarts_end"`     //what the pattern is replaced with
	TargetZ      int    `yaml:"target_z" json:"target_z"`
	HeavyZ       int    `yaml:"heavy_z" json:"heavy_z"`
	TargetSymbol string `yaml:"target_symbol" json:"target_symbol"`
	HeavySymbol  string `yaml:"heavy_symbol" json:"heavy_symbol"`
}

// Registry is the ordered table of known functional groups, plus the pairs
// of heavy atoms that are joined by double bonds when a cage is assembled.
type Registry struct {
	Groups      []FuncGroup `yaml:"groups"`
	DoubleBonds [][2]string `yaml:"double_bonds"`
}

// DefaultRegistry returns the built-in functional groups.
func DefaultRegistry() *Registry {
	return &Registry{
		Groups: []FuncGroup{
			{"aldehyde", "C(=O)[H]", "[Y]", 6, 39, "C", "Y"},
			{"carboxylic acid", "C(=O)O[H]", "[Zr]=O", 6, 40, "C", "Zr"},
			{"amide", "C(=O)N([H])[H]", "[Nb]=O", 6, 41, "C", "Nb"},
			{"thioacid", "C(=O)S[H]", "[Mo]=O", 6, 42, "C", "Mo"},
			{"alcohol", "O[H]", "[Tc]", 8, 43, "O", "Tc"},
			{"thiol", "[S][H]", "[Ru]", 16, 44, "S", "Ru"},
			{"amine", "[N]([H])[H]", "[Rh]", 7, 45, "N", "Rh"},
			{"nitroso", "N=O", "[Pd]", 7, 46, "N", "Pd"},
			{"boronic acid", "[B](O[H])O[H]", "[Ag]", 5, 47, "B", "Ag"},
		},
		DoubleBonds: [][2]string{{"Rh", "Y"}, {"Nb", "Y"}, {"Mo", "Rh"}},
	}
}

// LoadRegistry reads a registry from a YAML file and validates it.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	R := new(Registry)
	if err := yaml.Unmarshal(data, R); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistry, path, err)
	}
	if err := R.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return R, nil
}

// Validate checks that group names are unique and non-empty, that symbols
// and atomic numbers agree, and that double bond pairs only use the
// heavy symbols of registered groups.
func (R *Registry) Validate() error {
	names := make(map[string]bool, len(R.Groups))
	heavy := make(map[string]bool, len(R.Groups))
	for i, g := range R.Groups {
		if g.Name == "" || names[g.Name] {
			return fmt.Errorf("%w: group %d has an empty or repeated name %q", ErrRegistry, i, g.Name)
		}
		names[g.Name] = true
		if g.SmartsStart == "" || g.SmartsEnd == "" {
			return fmt.Errorf("%w: group %s lacks a pattern", ErrRegistry, g.Name)
		}
		if chem.Symbol(g.TargetZ) != g.TargetSymbol || chem.Symbol(g.HeavyZ) != g.HeavySymbol {
			return fmt.Errorf("%w: group %s: symbols %s/%s don't match atomic numbers %d/%d", ErrRegistry, g.Name, g.TargetSymbol, g.HeavySymbol, g.TargetZ, g.HeavyZ)
		}
		heavy[g.HeavySymbol] = true
	}
	for _, p := range R.DoubleBonds {
		for _, s := range p {
			if !heavy[s] {
				return fmt.Errorf("%w: double bond pair %v uses %q, which is not a heavy symbol", ErrRegistry, p, s)
			}
		}
	}
	return nil
}

// Match returns the first group, in table order, whose name occurs in
// path, or nil if none does.
func (R *Registry) Match(path string) *FuncGroup {
	for i := range R.Groups {
		if strings.Contains(path, R.Groups[i].Name) {
			g := R.Groups[i]
			return &g
		}
	}
	return nil
}

// Group returns the group with the given name, or nil.
func (R *Registry) Group(name string) *FuncGroup {
	for i := range R.Groups {
		if R.Groups[i].Name == name {
			g := R.Groups[i]
			return &g
		}
	}
	return nil
}

// BondOrder returns the order of the bond joining two heavy atoms with
// the given symbols: double for the registered pairs, in either order,
// single otherwise.
func (R *Registry) BondOrder(a, b string) chem.BondOrder {
	for _, p := range R.DoubleBonds {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return chem.Double
		}
	}
	return chem.Single
}
