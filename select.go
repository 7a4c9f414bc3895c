/*
 * select.go, part of qhop.
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
	"cmp"
	"fmt"
	"slices"
)

// Hop is a candidate accepted for execution.
type Hop struct {
	Candidate
	Order int     `json:"order"` //position in the selection
	Draw  float64 `json:"draw"`
}

func compareCandidates(a, b Candidate) int {
	return cmp.Or(
		cmp.Compare(a.Donor, b.Donor),
		cmp.Compare(a.Acceptor, b.Acceptor),
		cmp.Compare(a.H, b.H),
		cmp.Compare(a.Slot, b.Slot),
		cmp.Compare(a.Prob, b.Prob),
	)
}

// claims holds the atoms and residues taken by the hops of a cycle.
type claims struct {
	atoms map[int]bool
	res   map[int]bool
}

func newClaims() *claims {
	return &claims{atoms: make(map[int]bool), res: make(map[int]bool)}
}

// free returns the first claimed atom of c, or -1 if none is. If only a
// residue is claimed, it returns -2.
func (cl *claims) free(c *Candidate) int {
	for _, a := range [...]int{c.Donor, c.Acceptor, c.H, c.Slot} {
		if cl.atoms[a] {
			return a
		}
	}
	if cl.res[c.DonorRes] || cl.res[c.AcceptorRes] {
		return -2
	}
	return -1
}

func (cl *claims) take(c *Candidate) {
	for _, a := range [...]int{c.Donor, c.Acceptor, c.H, c.Slot} {
		cl.atoms[a] = true
	}
	cl.res[c.DonorRes] = true
	cl.res[c.AcceptorRes] = true
}

// Select returns the accepted hops among cands for a step, in processing order.
// Candidates are ordered by donor and then acceptor global index (and
// randomly permuted after that in Scrambled mode). Each one is accepted if
// a uniform draw is smaller than its probability and none of its atoms or
// residues were claimed by an earlier accepted hop. In Single mode, at most one
// hop is accepted. cands is not modified. The result depends only on the
// arguments.
func Select(cands []Candidate, seed uint64, step int64, mode Mode) []Hop {
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, compareCandidates)
	order := make([]int, len(sorted))
	for i := range order {
		order[i] = i
	}
	if mode == Scrambled {
		order = permutation(seed, step, len(sorted))
	}
	cl := newClaims()
	var ret []Hop
	for _, i := range order {
		c := &sorted[i]
		if cl.free(c) != -1 {
			continue
		}
		u := Draw(seed, step, c.Donor, c.Acceptor)
		if !(u < c.Prob) {
			continue
		}
		cl.take(c)
		ret = append(ret, Hop{Candidate: *c, Order: len(ret), Draw: u})
		if mode == Single {
			break
		}
	}
	return ret
}

// CheckClaims returns a ConsistencyViolation if an atom or a residue takes part
// in more than one of the hops.
func CheckClaims(hops []Hop) error {
	cl := newClaims()
	for _, h := range hops {
		switch a := cl.free(&h.Candidate); a {
		case -1:
		case -2:
			return &ConsistencyViolation{Atom: h.Donor, Msg: fmt.Sprintf("residues of hop %v claimed twice", &h.Candidate)}
		default:
			return &ConsistencyViolation{Atom: a, Msg: fmt.Sprintf("atom claimed twice (hop %v)", &h.Candidate)}
		}
		if h.DonorRes == h.AcceptorRes && h.Donor == h.Acceptor {
			return &ConsistencyViolation{Atom: h.Donor, Msg: "hop from an atom to itself"}
		}
		cl.take(&h.Candidate)
	}
	return nil
}
