/*
 * helpers_test.go, part of qhop.
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
	"slices"
	"testing"

	v3 "github.com/rmera/qhop/v3"
)

// A small acid, ACI, with one titratable oxygen that can take one proton.
// ACIH is the protonated subtype.
func aciDB() *DB {
	return &DB{
		Residues: []*ResidueType{{
			Name:  "ACI",
			Sites: []*Site{{Atom: "O", Type: "OH", Role: Both, Hydrogens: []string{"H"}}},
			Subtypes: []*Subtype{
				{Name: "ACIH", Protons: []string{"H"}, Charges: map[string]float64{"C": 0.3, "O": -0.7, "H": 0.4}},
				{Name: "ACI", Protons: []string{}, Charges: map[string]float64{"C": 0.0, "O": -1.0, "H": 0.0}},
			},
			Bonded: []*BondedVariant{
				{Kind: Bonds, Atoms: []string{"O", "H"}, Params: map[string]ParamSet{
					"ACIH": {Func: 1, Values: []float64{0.0972, 313800}},
					"ACI":  {Func: 1, Values: []float64{0.0972, 0}},
				}},
				{Kind: Angles, Atoms: []string{"C", "O", "H"}, Params: map[string]ParamSet{
					"ACIH": {Func: 1, Values: []float64{108.5, 460}},
					"ACI":  {Func: 1, Values: []float64{108.5, 0}},
				}},
			},
		}},
		Transitions: []*Transition{{
			Donor:      "ACIH",
			Acceptor:   "ACI",
			Energy:     []EnergyPoint{{R: 0.2, E: -5}, {R: 0.3, E: -5}},
			ROpt:       0.27,
			RMax:       0.32,
			AnglePower: 2,
			BondLength: 0.1,
		}},
	}
}

type tatom struct {
	name string
	res  int
	x    [3]float64
}

var aciTypes = map[string]string{"C": "C", "O": "OH", "H": "HO"}

// aciSystem builds the topology and state for ACI residues. Each residue
// needs atoms named C, O and H. A residue is protonated if its H is in occ.
func aciSystem(Te *testing.T, ats []tatom, occ map[int]bool) (*Topology, *State) {
	Te.Helper()
	rt, _ := aciDB().ResidueType("ACI")
	atoms := make([]*Atom, len(ats))
	byres := make(map[int]map[string]int)
	var order []int
	for i, a := range ats {
		atoms[i] = &Atom{Name: a.name, ID: i, Type: aciTypes[a.name], Molname: "ACI", MolID: a.res, Symbol: a.name}
		if byres[a.res] == nil {
			byres[a.res] = make(map[string]int)
			order = append(order, a.res)
		}
		byres[a.res][a.name] = i
	}
	top := NewTopology(atoms)
	for _, r := range order {
		m := byres[r]
		sub := rt.Subtypes[1]
		if occ[m["H"]] {
			sub = rt.Subtypes[0]
		}
		for n, i := range m {
			atoms[i].Charge = sub.Charges[n]
		}
		top.AddInteraction(Bonds, []int{m["C"], m["O"]}, ParamSet{Func: 1, Values: []float64{0.143, 251000}})
		if _, ok := m["H"]; !ok {
			continue
		}
		top.AddInteraction(Bonds, []int{m["O"], m["H"]}, rt.Bonded[0].Params[sub.Name])
		top.AddInteraction(Angles, []int{m["C"], m["O"], m["H"]}, rt.Bonded[1].Params[sub.Name])
	}
	x := v3.Zeros(len(ats))
	v := v3.Zeros(len(ats))
	for i, a := range ats {
		x.SetVec(i, a.x)
		v.SetVec(i, [3]float64{0.01 * float64(i+1), 0, 0})
	}
	return top, &State{X: x, V: v}
}

// Donor ACIH (residue 1) in line with acceptor ACI (residue 2), at 0.26 nm.
func pairAtoms() []tatom {
	return []tatom{
		{"C", 1, [3]float64{0, 0, 0}},
		{"O", 1, [3]float64{0.14, 0, 0}},
		{"H", 1, [3]float64{0.24, 0, 0}},
		{"O", 2, [3]float64{0.40, 0, 0}},
		{"C", 2, [3]float64{0.40, -0.14, 0}},
		{"H", 2, [3]float64{0.40, 0.1, 0}},
	}
}

// Two donors (residues 1 and 3) at 0.26 nm of the same acceptor (residue 2).
func twoDonorAtoms() []tatom {
	return append(pairAtoms(),
		tatom{"O", 3, [3]float64{0.66, 0, 0}},
		tatom{"H", 3, [3]float64{0.56, 0, 0}},
		tatom{"C", 3, [3]float64{0.80, 0, 0}},
	)
}

func newPair(Te *testing.T, opts *Options) (*QHop, *State) {
	Te.Helper()
	top, st := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	Q, err := New(top, nil, aciDB(), nil, nil, map[int]bool{2: true}, opts)
	if err != nil {
		Te.Fatal(err)
	}
	return Q, st
}

func params(top *Topology) [NKinds][]int {
	var ret [NKinds][]int
	for k, l := range top.Bonded {
		for _, in := range l {
			ret[k] = append(ret[k], in.Param)
		}
	}
	return ret
}

func matrixOf(vs ...[3]float64) *v3.Matrix {
	m := v3.Zeros(len(vs))
	for i, v := range vs {
		m.SetVec(i, v)
	}
	return m
}

func near(a, b [3]float64) bool {
	return v3.Norm(v3.Sub(a, b)) < 1e-9
}

func subtypeNames(reg *Registry) []string {
	var ret []string
	for _, r := range reg.Residues {
		ret = append(ret, r.Current().Name)
	}
	return ret
}

func equalNames(a []string, b ...string) bool {
	return slices.Equal(a, b)
}
