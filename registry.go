/*
 * registry.go, part of qhop.
 *
 * Copyright 2025 Raul Mera A. (rmeraaatacademicosdotutadotcl)
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

package qhop

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// maxBondSep is the largest number of covalent bonds between a donor and an
// acceptor for which they are considered "self bonded".
const maxBondSep = 3

// Titratable is an atom that can donate and/or accept a proton.
type Titratable struct {
	Index int //global index
	Local int //index in the rank's topology and state
	Name  string
	Res   *Residue
	Site  *Site
	Slots []int //local indexes of the hydrogen slots, in the order of Site.Hydrogens
	near  map[int]bool
}

// Role returns what the atom can do with a proton.
func (T *Titratable) Role() Role {
	return T.Site.Role
}

// Near returns true if the titratable atom with the given global index is within
// 3 covalent bonds of T, or in the same residue.
func (T *Titratable) Near(global int) bool {
	return T.near[global]
}

func (T *Titratable) String() string {
	return fmt.Sprintf("%s%d:%s(%d)", T.Res.Type.Name, T.Res.ID, T.Name, T.Index)
}

// Residue is a titratable residue of the system.
type Residue struct {
	ID      int //Atom.MolID of its atoms
	Type    *ResidueType
	Subtype int //index of the active subtype in Type.Subtypes
	Sites   []*Titratable
	Atoms   map[string]int //local indexes by atom name
}

// Current returns the active subtype.
func (R *Residue) Current() *Subtype {
	return R.Type.Subtypes[R.Subtype]
}

// Registry holds all the titratable atoms and residues of the system.
type Registry struct {
	Top      *Topology
	Meta     *Metadata
	Residues []*Residue    //in order of appearance
	Sites    []*Titratable //in increasing global index

	bysite map[int]*Titratable //global index
	byres  map[int]*Residue
	howner map[int]*Titratable //local index of an H slot -> its heavy atom
	local  map[int]int
	graph  *simple.UndirectedGraph
}

// NewRegistry finds all the titratable atoms in top, using db, and sets
// the starting subtype of each titratable residue from occupancy, which maps
// the global index of each hydrogen slot that physically exists to true.
// If meta is nil, a new Metadata is created. The donor/acceptor/active
// flags of meta are set for all the titratable atoms and hydrogens.
func NewRegistry(top *Topology, db Database, occupancy map[int]bool, meta *Metadata) (*Registry, error) {
	if top == nil || db == nil {
		return nil, &ConfigurationError{Atom: -1, Residue: -1, Msg: "nil topology or database"}
	}
	if meta == nil {
		meta = NewMetadata(top.Len())
	}
	if len(meta.ActiveH) != top.Len() || len(meta.Donor) != top.Len() || len(meta.Acceptor) != top.Len() {
		return nil, &ConfigurationError{Atom: -1, Residue: -1, Msg: "metadata doesn't match the topology"}
	}
	R := &Registry{
		Top:    top,
		Meta:   meta,
		bysite: make(map[int]*Titratable),
		byres:  make(map[int]*Residue),
		howner: make(map[int]*Titratable),
		local:  make(map[int]int, top.Len()),
	}
	for i, at := range top.Atoms {
		R.local[at.ID] = i
	}
	for i, at := range top.Atoms {
		rt, ok := db.ResidueType(at.Molname)
		if !ok {
			continue
		}
		res, ok := R.byres[at.MolID]
		if !ok {
			res = &Residue{ID: at.MolID, Type: rt, Atoms: make(map[string]int)}
			R.byres[at.MolID] = res
			R.Residues = append(R.Residues, res)
		} else if res.Type != rt {
			return nil, &ConfigurationError{Atom: at.ID, Residue: at.MolID, Msg: fmt.Sprintf("residue has atoms of types %s and %s", res.Type.Name, rt.Name)}
		}
		if _, dup := res.Atoms[at.Name]; dup {
			return nil, &ConfigurationError{Atom: at.ID, Residue: at.MolID, Msg: fmt.Sprintf("repeated atom name %s", at.Name)}
		}
		res.Atoms[at.Name] = i
	}
	for _, res := range R.Residues {
		if err := R.initResidue(res, occupancy); err != nil {
			return nil, errDecorate(err, "NewRegistry")
		}
	}
	slices.SortFunc(R.Sites, func(a, b *Titratable) int { return a.Index - b.Index })
	R.buildGraph()
	for _, t := range R.Sites {
		R.findNear(t)
		R.refresh(t)
	}
	return R, nil
}

func (R *Registry) initResidue(res *Residue, occupancy map[int]bool) error {
	var present []string
	for _, s := range res.Type.Sites {
		li, ok := res.Atoms[s.Atom]
		if !ok {
			return &ConfigurationError{Atom: -1, Residue: res.ID, Msg: fmt.Sprintf("titratable atom %s of %s missing", s.Atom, res.Type.Name)}
		}
		at := R.Top.Atoms[li]
		if s.Type != "" && s.Type != at.Type {
			return &ConfigurationError{Atom: at.ID, Residue: res.ID, Msg: fmt.Sprintf("atom type %s of %s has no entry in the database for %s (expected %s)", at.Type, at.Name, res.Type.Name, s.Type)}
		}
		if R.bysite[at.ID] != nil {
			return &ConfigurationError{Atom: at.ID, Residue: res.ID, Msg: "atom listed twice as titratable"}
		}
		t := &Titratable{Index: at.ID, Local: li, Name: at.Name, Res: res, Site: s}
		for _, hn := range s.Hydrogens {
			hl, ok := res.Atoms[hn]
			if !ok {
				return &ConfigurationError{Atom: at.ID, Residue: res.ID, Msg: fmt.Sprintf("hydrogen slot %s of %s missing", hn, res.Type.Name)}
			}
			if o := R.howner[hl]; o != nil {
				return &ConfigurationError{Atom: R.Top.Atoms[hl].ID, Residue: res.ID, Msg: fmt.Sprintf("hydrogen %s belongs to both %s and %s", hn, o.Name, at.Name)}
			}
			R.howner[hl] = t
			t.Slots = append(t.Slots, hl)
			exists := occupancy[R.Top.Atoms[hl].ID]
			R.Meta.ActiveH[hl] = exists
			if exists {
				present = append(present, hn)
			}
		}
		res.Sites = append(res.Sites, t)
		R.Sites = append(R.Sites, t)
		R.bysite[t.Index] = t
	}
	res.Subtype = res.Type.SubtypeWith(present)
	if res.Subtype < 0 {
		return &ConfigurationError{Atom: -1, Residue: res.ID, Msg: fmt.Sprintf("no subtype of %s has exactly the protons %v", res.Type.Name, present)}
	}
	return nil
}

// buildGraph builds the covalent graph from the bond list. Nodes are local indexes.
func (R *Registry) buildGraph() {
	g := simple.NewUndirectedGraph()
	for _, b := range R.Top.Bonded[Bonds] {
		if len(b.Atoms) < 2 || b.Atoms[0] == b.Atoms[1] {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(b.Atoms[0]), T: simple.Node(b.Atoms[1])})
	}
	R.graph = g
}

func (R *Registry) findNear(t *Titratable) {
	t.near = make(map[int]bool)
	for _, o := range t.Res.Sites {
		if o != t {
			t.near[o.Index] = true
		}
	}
	from := R.graph.Node(int64(t.Local))
	if from == nil {
		return
	}
	bf := traverse.BreadthFirst{}
	bf.Walk(R.graph, from, func(n graph.Node, d int) bool {
		if d > maxBondSep {
			return true
		}
		o := R.howner[int(n.ID())]
		if o == nil {
			o = R.bysite[R.Top.Atoms[n.ID()].ID]
		} else {
			o = nil //hydrogens are not acceptors
		}
		if o != nil && o != t {
			t.near[o.Index] = true
		}
		return false
	})
}

// refresh sets the donor/acceptor flags of t according to its hydrogens.
func (R *Registry) refresh(t *Titratable) {
	R.Meta.Donor[t.Local] = t.Role().CanDonate() && len(R.ActiveSlots(t)) > 0
	R.Meta.Acceptor[t.Local] = t.Role().CanAccept() && len(R.FreeSlots(t)) > 0
}

// Site returns the titratable atom with the given global index, or nil.
func (R *Registry) Site(global int) *Titratable {
	return R.bysite[global]
}

// Residue returns the titratable residue with the given id, or nil.
func (R *Registry) Residue(id int) *Residue {
	return R.byres[id]
}

// Local returns the local index of the atom with the given global index.
func (R *Registry) Local(global int) (int, bool) {
	l, ok := R.local[global]
	return l, ok
}

// Global returns the global index of the atom with the given local index.
func (R *Registry) Global(local int) int {
	return R.Top.Atoms[local].ID
}

// HeavyOf returns the titratable atom that the hydrogen slot with local index h
// belongs to, or nil if h is not a slot.
func (R *Registry) HeavyOf(h int) *Titratable {
	return R.howner[h]
}

// ActiveSlots returns the local indexes of the hydrogens currently on t.
func (R *Registry) ActiveSlots(t *Titratable) []int {
	ret := make([]int, 0, len(t.Slots))
	for _, h := range t.Slots {
		if R.Meta.ActiveH[h] {
			ret = append(ret, h)
		}
	}
	return ret
}

// FreeSlots returns the local indexes of the parked hydrogens of t.
func (R *Registry) FreeSlots(t *Titratable) []int {
	ret := make([]int, 0, len(t.Slots))
	for _, h := range t.Slots {
		if !R.Meta.ActiveH[h] {
			ret = append(ret, h)
		}
	}
	return ret
}

// Hydrogens returns the local indexes of all the hydrogen slots, sorted.
func (R *Registry) Hydrogens() []int {
	ret := make([]int, 0, len(R.howner))
	for h := range R.howner {
		ret = append(ret, h)
	}
	slices.Sort(ret)
	return ret
}

// Charge returns the total charge of the titratable residues according to
// their current subtypes and the topology.
func (R *Registry) Charge() float64 {
	q := make([]float64, 0, len(R.Residues)*4)
	for _, res := range R.Residues {
		for _, l := range res.Atoms {
			q = append(q, R.Top.Atoms[l].Charge)
		}
	}
	return sortedSum(q)
}
