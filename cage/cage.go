/*
 * cage.go, part of gocage.
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

// Package cage implements the individuals of the genetic algorithm:
// cages assembled from a building block and a linker following a
// topology. The assembly itself is done by an external Assembler.
package cage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	chem "github.com/gocage/gocage"
	"github.com/gocage/gocage/cache"
	"github.com/gocage/gocage/chemgraph"
	"github.com/gocage/gocage/similarity"
	"github.com/gocage/gocage/units"
	"go.uber.org/zap"
)

// Assembler builds the molecule of a cage from its units and topology.
// With heavy, the substituted molecules of the units are joined instead
// of the pristine ones.
type Assembler interface {
	Assemble(ctx context.Context, bb, lk *units.Unit, topology string, heavy bool) (*chem.Molecule, error)
}

// Smiler gives the SMILES string of a molecule. units.Oracle is a Smiler.
type Smiler interface {
	Smiles(m *chem.Molecule) (string, error)
}

// Optimizer relaxes the geometry of a molecule, updating its conformer 0.
type Optimizer interface {
	Optimize(ctx context.Context, m *chem.Molecule) error
}

// Role is one of the two kinds of unit in a cage.
type Role int

const (
	RoleBB Role = iota
	RoleLK
)

func (R Role) String() string {
	if R == RoleLK {
		return "linker"
	}
	return "building block"
}

// Cage is an assembled individual. The exported fields must not be
// changed once the cage is built. Heavy is the cage assembled from the
// substituted units, nil if either unit has no functional group.
type Cage struct {
	BB          *units.BuildingBlock
	LK          *units.Linker
	Topology    string
	File        string
	Mol         *chem.Molecule
	Heavy       *chem.Molecule
	PristSmiles string
	HeavySmiles string

	key     string
	cursors *cursors
}

// similarity-ordered candidates for replacing each unit, created on
// first use and only kept in memory.
type cursors struct {
	mu sync.Mutex
	bb *similarity.Cursor
	lk *similarity.Cursor
}

// Key returns the identity key of the cage.
func (C *Cage) Key() string { return C.key }

// HeavyFile returns the path where the substituted version of the cage
// is written, or an empty string if the cage has no file or no
// substituted version.
func (C *Cage) HeavyFile() string {
	if C.File == "" || C.Heavy == nil {
		return ""
	}
	ext := filepath.Ext(C.File)
	return strings.TrimSuffix(C.File, ext) + "_HEAVY" + ext
}

func (C *Cage) String() string {
	return fmt.Sprintf("Cage(%s, %s, %s)", C.BB.PristFile(), C.LK.PristFile(), C.Topology)
}

// Unit returns the unit of the cage with the given role.
func (C *Cage) Unit(r Role) *units.Unit {
	if r == RoleLK {
		return &C.LK.Unit
	}
	return &C.BB.Unit
}

// guards the lazy creation of the cursors of cages not made by a Builder.
var cursInit sync.Mutex

func (C *Cage) curs() *cursors {
	cursInit.Lock()
	defer cursInit.Unlock()
	if C.cursors == nil {
		C.cursors = new(cursors)
	}
	return C.cursors
}

// SimilarBB returns the cursor of building blocks similar to the cage's, or
// nil if it hasn't been created.
func (C *Cage) SimilarBB() *similarity.Cursor {
	c := C.curs()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bb
}

func (C *Cage) SetSimilarBB(cur *similarity.Cursor) {
	c := C.curs()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bb = cur
}

// SimilarLK is like SimilarBB, for the linker.
func (C *Cage) SimilarLK() *similarity.Cursor {
	c := C.curs()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lk
}

func (C *Cage) SetSimilarLK(cur *similarity.Cursor) {
	c := C.curs()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lk = cur
}

// Similar returns the cursor for the role r, creating it with the paths
// given by rank if the cage doesn't have one yet.
func (C *Cage) Similar(r Role, rank func() ([]string, error)) (*similarity.Cursor, error) {
	c := C.curs()
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &c.bb
	if r == RoleLK {
		p = &c.lk
	}
	if *p != nil {
		return *p, nil
	}
	paths, err := rank()
	if err != nil {
		return nil, err
	}
	*p = similarity.NewCursor(paths)
	return *p, nil
}

// Same returns true if both cages have the same building block, linker
// and topology.
func Same(a, b *Cage) bool {
	if a == nil || b == nil {
		return false
	}
	return a.BB.Same(&b.BB.Unit) && a.LK.Same(&b.LK.Unit) && a.Topology == b.Topology
}

// Key returns the identity key of the cage made of bb and lk with the
// given topology.
func Key(bb *units.BuildingBlock, lk *units.Linker, topology string) (string, error) {
	if bb == nil || lk == nil || topology == "" || bb.Key() == "" || lk.Key() == "" {
		return "", fmt.Errorf("cage needs a building block, a linker and a topology: %w", cache.ErrStructuralKey)
	}
	return bb.Key() + "#" + lk.Key() + "#" + topology, nil
}

var cageCache = cache.New[Cage]("Cage")

// Builder builds cages. Assembler is required, Optimizer and Smiler are
// optional. Without a Smiler, the SMILES of the cages are left empty.
type Builder struct {
	Assembler Assembler
	Optimizer Optimizer
	Smiler    Smiler
	Log       *zap.Logger
}

// NewBuilder returns a builder. If a is also a Smiler, it is used to get
// the SMILES of the cages. A nil log means no logging.
func NewBuilder(a Assembler, o Optimizer, log *zap.Logger) *Builder {
	B := &Builder{Assembler: a, Optimizer: o, Log: log}
	if s, ok := a.(Smiler); ok {
		B.Smiler = s
	}
	return B
}

func (B *Builder) log() *zap.Logger {
	if B.Log == nil {
		return zap.NewNop()
	}
	return B.Log
}

// Cage returns the cage made of bb and lk with the given topology. The
// molecule is assembled, optimized if the builder has an Optimizer, and
// written to out, with the substituted version next to it (see
// HeavyFile). An empty out means nothing is written. With useCache, a
// live cage with the same units and topology is returned instead, even
// if it was written to another file.
func (B *Builder) Cage(ctx context.Context, bb *units.BuildingBlock, lk *units.Linker, topology, out string, useCache bool) (*Cage, error) {
	key, err := Key(bb, lk, topology)
	if err != nil {
		return nil, err
	}
	return cageCache.GetOrCreate(key, useCache, func() (*Cage, error) {
		return B.build(ctx, key, bb, lk, topology, out)
	})
}

func (B *Builder) build(ctx context.Context, key string, bb *units.BuildingBlock, lk *units.Linker, topology, out string) (*Cage, error) {
	if B.Assembler == nil {
		return nil, fmt.Errorf("cage: no assembler")
	}
	log := B.log().With(zap.String("topology", topology), zap.String("file", out))
	C := &Cage{BB: bb, LK: lk, Topology: topology, File: out, key: key, cursors: new(cursors)}
	var err error
	C.Mol, err = B.Assembler.Assemble(ctx, &bb.Unit, &lk.Unit, topology, false)
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", out, err)
	}
	if bb.Heavy() != nil && lk.Heavy() != nil {
		C.Heavy, err = B.Assembler.Assemble(ctx, &bb.Unit, &lk.Unit, topology, true)
		if err != nil {
			return nil, fmt.Errorf("assembling the heavy version of %s: %w", out, err)
		}
	}
	if B.Optimizer != nil {
		if err := B.Optimizer.Optimize(ctx, C.Mol); err != nil {
			return nil, fmt.Errorf("optimizing %s: %w", out, err)
		}
	}
	if out != "" {
		if err := C.Mol.Write(out, nil); err != nil {
			return nil, err
		}
		if C.Heavy != nil {
			if err := C.Heavy.Write(C.HeavyFile(), nil); err != nil {
				return nil, err
			}
		}
	}
	if B.Smiler != nil {
		if C.PristSmiles, err = B.Smiler.Smiles(C.Mol); err != nil {
			return nil, fmt.Errorf("SMILES of %s: %w", out, err)
		}
		if C.Heavy != nil {
			if C.HeavySmiles, err = B.Smiler.Smiles(C.Heavy); err != nil {
				return nil, fmt.Errorf("SMILES of the heavy version of %s: %w", out, err)
			}
		}
	}
	if frags := chemgraph.Components(C.Mol); len(frags) > 1 {
		log.Warn("assembled cage is not connected", zap.Int("fragments", len(frags)))
	}
	log.Debug("cage built", zap.Int("atoms", C.Mol.Len()), zap.Bool("heavy", C.Heavy != nil))
	return C, nil
}

// Update reconciles c, built elsewhere (e.g. by another process and
// unloaded from JSON) with the cache, and returns the canonical cage.
// Its units are reconciled first. The similarity cursors of the
// canonical cage are kept.
func (B *Builder) Update(c *Cage) (*Cage, error) {
	var err error
	if c.BB, err = units.UpdateBuildingBlock(c.BB); err != nil {
		return nil, err
	}
	if c.LK, err = units.UpdateLinker(c.LK); err != nil {
		return nil, err
	}
	if live := cageCache.Get(c.key); live != nil && live != c {
		c.cursors = live.curs()
	}
	return cageCache.Update(c.key, c)
}
