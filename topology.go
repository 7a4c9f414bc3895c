/*
 * topology.go, part of qhop.
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
	"strings"

	v3 "github.com/rmera/qhop/v3"
	"gonum.org/v1/gonum/floats"
)

// Atom contains the force-field information of an atom except for the
// coordinates, which are in a v3.Matrix.
type Atom struct {
	Name    string
	ID      int    //global index, 0-based
	Type    string //force-field atom type
	Molname string //residue name
	MolID   int    //residue id, unique in the whole system
	Symbol  string
	Mass    float64
	Charge  float64
}

// Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic("Attempted to copy a nil atom")
	}
	ret := *A
	return &ret
}

// Kind is the kind of a bonded interaction list.
type Kind int

const (
	Bonds Kind = iota
	Angles
	Dihedrals
	Impropers
	NKinds
)

var kindNames = [NKinds]string{"bonds", "angles", "dihedrals", "impropers"}

// KindAtoms returns the number of atoms that an interaction of kind k involves.
func KindAtoms(k Kind) int {
	switch k {
	case Bonds:
		return 2
	case Angles:
		return 3
	case Dihedrals, Impropers:
		return 4
	}
	return 0
}

func (k Kind) String() string {
	if k < 0 || k >= NKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, v := range kindNames {
		if v == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown interaction kind %q", s)
}

// ParamSet is a set of parameters for a bonded interaction.
type ParamSet struct {
	Func   int       `json:"func"`
	Values []float64 `json:"values"`
}

// Equal returns true if both parameter sets are identical.
func (P ParamSet) Equal(Q ParamSet) bool {
	return P.Func == Q.Func && floats.Equal(P.Values, Q.Values)
}

func (P ParamSet) key() string {
	return fmt.Sprint(P.Func, P.Values)
}

// Interaction is one entry of a bonded interaction list. Only Param is
// changed by the hops.
type Interaction struct {
	Func  int
	Atoms []int //local indexes
	Param int   //index in Topology.Params
}

// Topology contains the atoms and bonded interactions of the system (or of the
// part of the system held by a rank, in which case atom indexes are local and
// Atom.ID holds the global index).
type Topology struct {
	Atoms  []*Atom
	Bonded [NKinds][]Interaction
	Params []ParamSet

	pindex   map[string]int
	pindexed int
}

// NewTopology returns a Topology with the given atoms and no interactions.
func NewTopology(ats []*Atom) *Topology {
	return &Topology{Atoms: ats}
}

// Atom returns the Atom corresponding to the index i
// of the Atom slice in the Topology. Panics if
// out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

// Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

// Charge returns the sum of the partial charges of the topology.
func (T *Topology) Charge() float64 {
	q := make([]float64, len(T.Atoms))
	for i, v := range T.Atoms {
		q[i] = v.Charge
	}
	return floats.Sum(q)
}

// sortedSum returns the sum of q, sorting it first so the result doesn't
// depend on the order of q. q is modified.
func sortedSum(q []float64) float64 {
	slices.Sort(q)
	return floats.Sum(q)
}

// Intern returns the index of P in the parameter table, appending it
// if it's not there.
func (T *Topology) Intern(P ParamSet) int {
	if T.pindex == nil || T.pindexed > len(T.Params) {
		T.pindex = make(map[string]int, len(T.Params))
		T.pindexed = 0
	}
	//Params might have been appended to directly.
	for ; T.pindexed < len(T.Params); T.pindexed++ {
		k := T.Params[T.pindexed].key()
		if _, ok := T.pindex[k]; !ok {
			T.pindex[k] = T.pindexed
		}
	}
	k := P.key()
	if i, ok := T.pindex[k]; ok {
		return i
	}
	T.Params = append(T.Params, ParamSet{Func: P.Func, Values: slices.Clone(P.Values)})
	T.pindexed = len(T.Params)
	T.pindex[k] = T.pindexed - 1
	return T.pindexed - 1
}

// AddInteraction appends an interaction with the given parameters to the list of kind k.
func (T *Topology) AddInteraction(k Kind, atoms []int, P ParamSet) {
	T.Bonded[k] = append(T.Bonded[k], Interaction{Func: P.Func, Atoms: atoms, Param: T.Intern(P)})
}

// ListLens returns the length of every bonded interaction list.
func (T *Topology) ListLens() [NKinds]int {
	var ret [NKinds]int
	for i, v := range T.Bonded {
		ret[i] = len(v)
	}
	return ret
}

// Metadata holds per-atom flags that the code outside qhop (force and neighbor
// search) consumes.
type Metadata struct {
	Donor    []bool //the atom can currently donate a proton
	Acceptor []bool //the atom can currently accept a proton
	ActiveH  []bool //false only for parked hydrogens
}

// NewMetadata returns a Metadata for n atoms, with every atom active.
func NewMetadata(n int) *Metadata {
	m := &Metadata{
		Donor:    make([]bool, n),
		Acceptor: make([]bool, n),
		ActiveH:  make([]bool, n),
	}
	for i := range m.ActiveH {
		m.ActiveH[i] = true
	}
	return m
}

// State is the dynamic state of the system, owned by the outer simulation.
type State struct {
	X    *v3.Matrix //positions, nm
	V    *v3.Matrix //velocities, nm/ps
	Box  []float64  //orthorhombic box lengths, nil for no PBC
	Step int64
}
