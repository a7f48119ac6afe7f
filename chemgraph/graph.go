/*
 * graph.go, part of gocage.
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

// Package chemgraph offers a gonum graph view of the bond graph of a
// chem.Molecule, so the gonum graph algorithms can be used on molecules.
package chemgraph

import (
	"sort"

	chem "github.com/gocage/gocage"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// Atom is a graph node. Its graph ID is the atom's ID in the molecule.
type Atom struct {
	chem.Atom
	Bonds []*Bond
}

func (A *Atom) ID() int64 {
	return int64(A.Atom.ID)
}

// AtID returns the ID of the atom in the molecule.
func (A *Atom) AtID() int {
	return A.Atom.ID
}

// Degree returns the number of bonds of the atom.
func (A *Atom) Degree() int {
	return len(A.Bonds)
}

// Bond is an undirected, weighted graph edge.
type Bond struct {
	chem.Bond
	At1, At2   *Atom
	Weightfunc func(*Bond) float64
}

// Weight returns the weight given by the bond's Weightfunc, or 1 if
// it doesn't have one.
func (B *Bond) Weight() float64 {
	if B.Weightfunc == nil {
		return 1
	}
	return B.Weightfunc(B)
}

func (B *Bond) From() graph.Node {
	return B.At1
}

func (B *Bond) To() graph.Node {
	return B.At2
}

// ReversedEdge returns a copy of the bond with the ends swapped.
func (B *Bond) ReversedEdge() graph.Edge {
	r := *B
	r.At1, r.At2 = B.At2, B.At1
	return &r
}

// CrossAtom returns the atom at the other end of the bond from A, or nil
// if A is not in the bond.
func (B *Bond) CrossAtom(A *Atom) *Atom {
	switch A {
	case B.At1:
		return B.At2
	case B.At2:
		return B.At1
	}
	return nil
}

type Bonds []*Bond

func (B Bonds) Len() int {
	return len(B)
}

// Contains returns true if a bond with the given index is in B.
func (B Bonds) Contains(index int) bool {
	for _, b := range B {
		if b.Index == index {
			return true
		}
	}
	return false
}

// Atoms implements gonum's graph.Nodes.
type Atoms struct {
	Atoms []*Atom
	pos   int
}

// Len returns the number of atoms not yet iterated over.
func (A *Atoms) Len() int {
	return len(A.Atoms) - A.pos
}

func (A *Atoms) Reset() {
	A.pos = 0
}

func (A *Atoms) Next() bool {
	if A.pos >= len(A.Atoms) {
		return false
	}
	A.pos++
	return true
}

func (A *Atoms) Node() graph.Node {
	if A.pos == 0 || A.pos > len(A.Atoms) {
		return nil
	}
	return A.Atoms[A.pos-1]
}

// Topology implements the gonum graph.Undirected and graph.Weighted interfaces.
type Topology struct {
	Bonds
	atoms []*Atom
	adj   []map[int]*Bond
}

// Len returns the number of atoms.
func (T *Topology) Len() int {
	return len(T.atoms)
}

// Atom returns the node for the atom with ID i.
func (T *Topology) Atom(i int) *Atom {
	return T.atoms[i]
}

func (T *Topology) has(id int64) bool {
	return id >= 0 && id < int64(len(T.atoms))
}

func (T *Topology) Node(id int64) graph.Node {
	if !T.has(id) {
		return nil
	}
	return T.atoms[id]
}

func (T *Topology) Nodes() graph.Nodes {
	if len(T.atoms) == 0 {
		return graph.Empty
	}
	return &Atoms{Atoms: T.atoms}
}

// From returns the atoms bonded to the one with the given ID.
func (T *Topology) From(id int64) graph.Nodes {
	if !T.has(id) || len(T.adj[id]) == 0 {
		return graph.Empty
	}
	ret := make([]*Atom, 0, len(T.adj[id]))
	for _, b := range T.atoms[id].Bonds {
		ret = append(ret, b.CrossAtom(T.atoms[id]))
	}
	return &Atoms{Atoms: ret}
}

func (T *Topology) HasEdgeBetween(id1, id2 int64) bool {
	return T.bondBetween(id1, id2) != nil
}

func (T *Topology) bondBetween(id1, id2 int64) *Bond {
	if !T.has(id1) || !T.has(id2) {
		return nil
	}
	return T.adj[id1][int(id2)]
}

// Edge returns the bond between the two atoms, with From the atom with
// ID id1, or nil if they are not bonded.
func (T *Topology) Edge(id1, id2 int64) graph.Edge {
	b := T.WeightedEdgeBetween(id1, id2)
	if b == nil {
		return nil
	}
	return b
}

func (T *Topology) EdgeBetween(id1, id2 int64) graph.Edge {
	return T.Edge(id1, id2)
}

// WeightedEdgeBetween returns the bond between the two atoms, oriented
// from id1 to id2, or nil.
func (T *Topology) WeightedEdgeBetween(id1, id2 int64) *Bond {
	b := T.bondBetween(id1, id2)
	if b == nil {
		return nil
	}
	if b.From().ID() != id1 {
		return b.ReversedEdge().(*Bond)
	}
	return b
}

func (T *Topology) WeightedEdge(id1, id2 int64) graph.WeightedEdge {
	b := T.WeightedEdgeBetween(id1, id2)
	if b == nil {
		return nil
	}
	return b
}

func (T *Topology) Weight(id1, id2 int64) (w float64, ok bool) {
	if id1 == id2 {
		return 0.0, true
	}
	b := T.bondBetween(id1, id2)
	if b == nil {
		return 0, false
	}
	return b.Weight(), true
}

// TopologyFromChem builds the bond graph of mol. If weightfunc is nil,
// all bonds weight 1.
func TopologyFromChem(mol chem.Bonder, weightfunc func(*Bond) float64) *Topology {
	T := &Topology{
		atoms: make([]*Atom, mol.Len()),
		adj:   make([]map[int]*Bond, mol.Len()),
	}
	for i := range T.atoms {
		T.atoms[i] = &Atom{Atom: *mol.Atom(i)}
		T.adj[i] = make(map[int]*Bond, 4)
	}
	for i := 0; i < mol.NBonds(); i++ {
		v := mol.Bond(i)
		nb := &Bond{Bond: *v, At1: T.atoms[v.At1], At2: T.atoms[v.At2], Weightfunc: weightfunc}
		T.Bonds = append(T.Bonds, nb)
		nb.At1.Bonds = append(nb.At1.Bonds, nb)
		nb.At2.Bonds = append(nb.At2.Bonds, nb)
		T.adj[v.At1][v.At2] = nb
		T.adj[v.At2][v.At1] = nb
	}
	return T
}

// Components returns the IDs of the atoms in each connected fragment of
// mol. Each fragment is sorted, and fragments are sorted by their
// first atom.
func Components(mol chem.Bonder) [][]int {
	if mol.Len() == 0 {
		return nil
	}
	cc := topo.ConnectedComponents(TopologyFromChem(mol, nil))
	ret := make([][]int, 0, len(cc))
	for _, c := range cc {
		ids := make([]int, len(c))
		for i, n := range c {
			ids[i] = int(n.ID())
		}
		sort.Ints(ids)
		ret = append(ret, ids)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}
