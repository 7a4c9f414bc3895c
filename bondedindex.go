/*
 * bondedindex.go, part of qhop.
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
)

// BondedIndexEntry is a bonded interaction whose parameters depend on the subtype
// of the residue it belongs to.
type BondedIndexEntry struct {
	Kind   Kind
	Pos    int //position in Topology.Bonded[Kind]
	Res    *Residue
	Params []int //parameter id for each subtype of Res.Type, -1 if the subtype has no variant
}

// BondedIndex maps each titratable residue to its subtype-dependent bonded interactions.
type BondedIndex struct {
	byres map[int][]*BondedIndexEntry
	n     int
}

func variantKey(k Kind, names []string) string {
	return k.String() + ":" + strings.Join(names, " ")
}

// BuildIndex scans the bonded interaction lists of top for terms that lie within one
// titratable residue of reg and match one of the bonded variants of its residue type,
// in the forward or reversed atom order. The parameters of every variant are interned
// in top. Matched interactions are set to the parameters of the current subtype.
// BuildIndex must be called again if the bonded lists change.
func BuildIndex(top *Topology, reg *Registry) (*BondedIndex, error) {
	variants := make(map[*ResidueType]map[string]*BondedVariant)
	for _, res := range reg.Residues {
		if _, ok := variants[res.Type]; ok {
			continue
		}
		m := make(map[string]*BondedVariant, 2*len(res.Type.Bonded))
		for _, v := range res.Type.Bonded {
			if len(v.Atoms) != KindAtoms(v.Kind) {
				return nil, &ConfigurationError{Atom: -1, Residue: res.ID, Msg: fmt.Sprintf("%s variant of %s with %d atoms", v.Kind, res.Type.Name, len(v.Atoms))}
			}
			m[variantKey(v.Kind, v.Atoms)] = v
			rev := slices.Clone(v.Atoms)
			slices.Reverse(rev)
			if _, ok := m[variantKey(v.Kind, rev)]; !ok {
				m[variantKey(v.Kind, rev)] = v
			}
		}
		variants[res.Type] = m
	}
	owner := make(map[int]*Residue)
	names := make(map[int]string)
	for _, res := range reg.Residues {
		for n, l := range res.Atoms {
			owner[l] = res
			names[l] = n
		}
	}
	B := &BondedIndex{byres: make(map[int][]*BondedIndexEntry)}
	for k := Kind(0); k < NKinds; k++ {
		for pos, in := range top.Bonded[k] {
			if len(in.Atoms) == 0 {
				continue
			}
			res := owner[in.Atoms[0]]
			if res == nil {
				continue
			}
			an := make([]string, len(in.Atoms))
			same := true
			for i, a := range in.Atoms {
				if owner[a] != res {
					same = false
					break
				}
				an[i] = names[a]
			}
			if !same {
				continue
			}
			v := variants[res.Type][variantKey(k, an)]
			if v == nil {
				continue
			}
			e := &BondedIndexEntry{Kind: k, Pos: pos, Res: res, Params: make([]int, len(res.Type.Subtypes))}
			for i, s := range res.Type.Subtypes {
				p, ok := v.Params[s.Name]
				if !ok {
					e.Params[i] = -1
					continue
				}
				if p.Func != in.Func {
					return nil, &ConfigurationError{Atom: top.Atoms[in.Atoms[0]].ID, Residue: res.ID, Msg: fmt.Sprintf("%s %v: function %d in the topology, %d in subtype %s", k, an, in.Func, p.Func, s.Name)}
				}
				e.Params[i] = top.Intern(p)
			}
			if cur := e.Params[res.Subtype]; cur >= 0 {
				top.Bonded[k][pos].Param = cur
			}
			B.byres[res.ID] = append(B.byres[res.ID], e)
			B.n++
		}
	}
	return B, nil
}

// Entries returns the indexed interactions of the residue.
func (B *BondedIndex) Entries(res *Residue) []*BondedIndexEntry {
	return B.byres[res.ID]
}

// Len returns the total number of indexed interactions.
func (B *BondedIndex) Len() int {
	return B.n
}
