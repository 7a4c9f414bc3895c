/*
 * mutate.go, part of qhop.
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
	"math"

	v3 "github.com/rmera/qhop/v3"
)

// Mutator changes the topology, metadata and state of the system to execute hops.
type Mutator struct {
	reg     *Registry
	idx     *BondedIndex
	home    func(global int) bool
	tol     float64
	log     Logger
	offsets map[int][3]float64 //parked H (local) -> position relative to its heavy atom
}

// NewMutator returns a Mutator for the registry and bonded index. Positions and
// velocities are only changed for atoms for which home returns true. A nil home
// means that all atoms are home.
func NewMutator(reg *Registry, idx *BondedIndex, home func(global int) bool, opts *Options) *Mutator {
	if opts == nil {
		opts = DefaultOptions()
	}
	if home == nil {
		home = func(int) bool { return true }
	}
	return &Mutator{reg: reg, idx: idx, home: home, tol: opts.ChargeTol(), log: opts.Log(), offsets: make(map[int][3]float64)}
}

type paramEdit struct {
	kind     Kind
	pos, par int
}

type chargeEdit struct {
	atom int //local
	q    float64
}

// plan is the set of topology changes needed to take some residues to new
// subtypes. Nothing is changed until commit.
type plan struct {
	res     []*Residue
	after   []int
	params  []paramEdit
	charges []chargeEdit
	dq      float64 //total charge after - before
}

// plan checks that every residue in res can go to the corresponding subtype in after,
// and collects the changes needed.
func (M *Mutator) plan(res []*Residue, after []int) (*plan, error) {
	P := &plan{res: res, after: after}
	var before, now []float64
	for i, r := range res {
		a := after[i]
		if a < 0 || a >= len(r.Type.Subtypes) {
			return nil, &UnsupportedTransitionError{Residue: r.ID, From: r.Current().Name, To: fmt.Sprint(a), Msg: "no such subtype"}
		}
		to := r.Type.Subtypes[a]
		for _, e := range M.idx.Entries(r) {
			if e.Params[a] < 0 {
				return nil, &UnsupportedTransitionError{Residue: r.ID, From: r.Current().Name, To: to.Name, Msg: fmt.Sprintf("no parameters for %s entry %d", e.Kind, e.Pos)}
			}
			P.params = append(P.params, paramEdit{kind: e.Kind, pos: e.Pos, par: e.Params[a]})
		}
		for name, l := range r.Atoms {
			q := M.reg.Top.Atoms[l].Charge
			before = append(before, q)
			if nq, ok := to.Charges[name]; ok {
				q = nq
				P.charges = append(P.charges, chargeEdit{atom: l, q: q})
			}
			now = append(now, q)
		}
	}
	P.dq = sortedSum(now) - sortedSum(before)
	return P, nil
}

// commit applies the plan. It can't fail.
func (M *Mutator) commit(P *plan) {
	top := M.reg.Top
	for _, e := range P.params {
		top.Bonded[e.kind][e.pos].Param = e.par
	}
	for _, c := range P.charges {
		top.Atoms[c.atom].Charge = c.q
	}
	for i, r := range P.res {
		r.Subtype = P.after[i]
		for _, t := range r.Sites {
			M.reg.refresh(t)
		}
	}
}

// Apply executes the hop c on the topology, metadata and st. The proton of
// the donor is parked and a free slot of the acceptor is placed on the line
// between acceptor and donor, with the velocity the donor hydrogen had.
// If the hop can't be executed, nothing is changed and an error is returned
// (an UnsupportedTransitionError if the database lacks what is needed).
// If only one of the two atoms is in the topology, only its side of the hop
// is executed; the rank that holds the other atom executes the rest.
func (M *Mutator) Apply(c *Candidate, st *State) error {
	reg := M.reg
	don, acc := reg.Site(c.Donor), reg.Site(c.Acceptor)
	switch {
	case don == nil && acc == nil:
		return &ConsistencyViolation{Atom: c.Donor, Msg: fmt.Sprintf("hop %v between unknown atoms", c)}
	case don == nil || acc == nil:
		return M.applyHalf(c, don, acc, st)
	}
	h, okh := reg.Local(c.H)
	s, oks := reg.Local(c.Slot)
	if !okh || !oks || reg.HeavyOf(h) != don || reg.HeavyOf(s) != acc {
		return &ConsistencyViolation{Atom: c.Donor, Msg: fmt.Sprintf("hop %v with hydrogens not on its atoms", c)}
	}
	if !reg.Meta.ActiveH[h] || reg.Meta.ActiveH[s] {
		return &UnsupportedTransitionError{Residue: don.Res.ID, From: don.Res.Current().Name, To: fmt.Sprint(c.DonorAfter), Msg: "hydrogens changed since the evaluation"}
	}
	if don.Res.Subtype != c.DonorBefore || acc.Res.Subtype != c.AcceptorBefore {
		return &UnsupportedTransitionError{Residue: don.Res.ID, From: don.Res.Current().Name, To: fmt.Sprint(c.DonorAfter), Msg: "subtypes changed since the evaluation"}
	}
	res, after := []*Residue{don.Res, acc.Res}, []int{c.DonorAfter, c.AcceptorAfter}
	if don.Res == acc.Res {
		res, after = res[:1], after[:1]
	}
	P, err := M.plan(res, after)
	if err != nil {
		return errDecorate(err, "Apply")
	}
	if math.Abs(P.dq) > M.tol {
		to := don.Res.Type.Subtypes[c.DonorAfter].Name
		return &UnsupportedTransitionError{Residue: don.Res.ID, From: don.Res.Current().Name, To: to, Msg: fmt.Sprintf("total charge would change by %g", P.dq)}
	}
	var vh [3]float64
	if st.V != nil {
		vh = st.V.Vec(h)
	}
	M.commit(P)
	M.unfold(s, acc.Local, v3.Unit(st.X.PBCSub(acc.Local, don.Local, st.Box)), c.BondLength, vh, st)
	M.fold(h, don.Local, st)
	reg.refresh(don)
	reg.refresh(acc)
	M.log.Infof("step %d: hop %v, residue %d %s->%s, residue %d %s->%s", st.Step, c,
		don.Res.ID, don.Res.Type.Subtypes[c.DonorBefore].Name, don.Res.Current().Name,
		acc.Res.ID, acc.Res.Type.Subtypes[c.AcceptorBefore].Name, acc.Res.Current().Name)
	return nil
}

// applyHalf executes the side of c that this rank holds, when the other side
// (don or acc, whichever is nil) is held by another rank. The donor side parks
// the proton; the acceptor side places the new one with the direction and
// velocity stored in c. The charge balance of the whole hop can't be checked
// with one side; qdb.Validate checks it for every transition of a database.
func (M *Mutator) applyHalf(c *Candidate, don, acc *Titratable, st *State) error {
	reg := M.reg
	t, g, before, after, side := don, c.H, c.DonorBefore, c.DonorAfter, "donor"
	if don == nil {
		t, g, before, after, side = acc, c.Slot, c.AcceptorBefore, c.AcceptorAfter, "acceptor"
		if v3.IsZero(c.Toward) {
			return &ConsistencyViolation{Atom: c.Acceptor, Msg: fmt.Sprintf("hop %v from another rank without a direction", c)}
		}
	}
	l, ok := reg.Local(g)
	if !ok || reg.HeavyOf(l) != t {
		return &ConsistencyViolation{Atom: t.Index, Msg: fmt.Sprintf("hop %v with hydrogens not on its atoms", c)}
	}
	if reg.Meta.ActiveH[l] != (don != nil) {
		return &UnsupportedTransitionError{Residue: t.Res.ID, From: t.Res.Current().Name, To: fmt.Sprint(after), Msg: "hydrogens changed since the evaluation"}
	}
	if t.Res.Subtype != before {
		return &UnsupportedTransitionError{Residue: t.Res.ID, From: t.Res.Current().Name, To: fmt.Sprint(after), Msg: "subtypes changed since the evaluation"}
	}
	P, err := M.plan([]*Residue{t.Res}, []int{after})
	if err != nil {
		return errDecorate(err, "Apply")
	}
	M.commit(P)
	if don != nil {
		M.fold(l, don.Local, st)
	} else {
		M.unfold(l, acc.Local, c.Toward, c.BondLength, c.HVel, st)
	}
	reg.refresh(t)
	M.log.Infof("step %d: hop %v (%s side), residue %d %s->%s", st.Step, c, side,
		t.Res.ID, t.Res.Type.Subtypes[before].Name, t.Res.Current().Name)
	return nil
}

// unfold activates the slot s of the heavy atom a, placing it at bond length l
// from a along the unit vector dir, with velocity v.
func (M *Mutator) unfold(s, a int, dir [3]float64, l float64, v [3]float64, st *State) {
	M.reg.Meta.ActiveH[s] = true
	delete(M.offsets, s)
	if !M.home(M.reg.Global(s)) {
		return
	}
	st.X.SetVec(s, v3.Add(st.X.Vec(a), v3.Scale(l, dir)))
	if st.V != nil {
		st.V.SetVec(s, v)
	}
}

// fold parks the hydrogen h of the heavy atom d.
func (M *Mutator) fold(h, d int, st *State) {
	M.reg.Meta.ActiveH[h] = false
	M.offsets[h] = st.X.PBCSub(d, h, st.Box)
	if !M.home(M.reg.Global(h)) {
		return
	}
	if st.V != nil {
		st.V.SetVec(h, st.V.Vec(d))
	}
}

// FoldInactive puts every parked hydrogen at its stored position relative to its
// heavy atom, with the velocity of the heavy atom. Parked hydrogens with no
// stored position get their current one.
func (M *Mutator) FoldInactive(st *State) {
	for _, h := range M.reg.Hydrogens() {
		if M.reg.Meta.ActiveH[h] {
			continue
		}
		d := M.reg.HeavyOf(h).Local
		off, ok := M.offsets[h]
		if !ok {
			off = st.X.PBCSub(d, h, st.Box)
			M.offsets[h] = off
		}
		if !M.home(M.reg.Global(h)) {
			continue
		}
		st.X.SetVec(h, v3.Add(st.X.Vec(d), off))
		if st.V != nil {
			st.V.SetVec(h, st.V.Vec(d))
		}
	}
}

// Protonate adds a proton to t, in its free slot with the lowest index, and changes
// the subtype of its residue accordingly. The total charge changes. The new
// hydrogen keeps its parked position.
func (M *Mutator) Protonate(t *Titratable) error {
	free := M.reg.FreeSlots(t)
	if !t.Role().CanAccept() || len(free) == 0 {
		return &UnsupportedTransitionError{Residue: t.Res.ID, From: t.Res.Current().Name, To: "?", Msg: fmt.Sprintf("%v can't take a proton", t)}
	}
	s := lowest(M.reg, free)
	after := t.Res.Type.SubtypeWith(afterProtons(t.Res, "", slotName(t, s)))
	if err := M.change(t, after); err != nil {
		return errDecorate(err, "Protonate")
	}
	M.reg.Meta.ActiveH[s] = true
	delete(M.offsets, s)
	M.reg.refresh(t)
	return nil
}

// Deprotonate parks the active hydrogen of t with the lowest index and changes the
// subtype of its residue accordingly. The total charge changes.
func (M *Mutator) Deprotonate(t *Titratable, st *State) error {
	act := M.reg.ActiveSlots(t)
	if !t.Role().CanDonate() || len(act) == 0 {
		return &UnsupportedTransitionError{Residue: t.Res.ID, From: t.Res.Current().Name, To: "?", Msg: fmt.Sprintf("%v has no proton to lose", t)}
	}
	h := lowest(M.reg, act)
	after := t.Res.Type.SubtypeWith(afterProtons(t.Res, slotName(t, h), ""))
	if err := M.change(t, after); err != nil {
		return errDecorate(err, "Deprotonate")
	}
	M.fold(h, t.Local, st)
	M.reg.refresh(t)
	return nil
}

func (M *Mutator) change(t *Titratable, after int) error {
	if after < 0 {
		return &UnsupportedTransitionError{Residue: t.Res.ID, From: t.Res.Current().Name, To: "?", Msg: "no subtype with the new protons"}
	}
	P, err := M.plan([]*Residue{t.Res}, []int{after})
	if err != nil {
		return err
	}
	from := t.Res.Current().Name
	M.commit(P)
	M.log.Infof("residue %d %s->%s", t.Res.ID, from, t.Res.Current().Name)
	return nil
}

// lowest returns the element of locals with the lowest global index.
func lowest(reg *Registry, locals []int) int {
	ret := locals[0]
	for _, v := range locals[1:] {
		if reg.Global(v) < reg.Global(ret) {
			ret = v
		}
	}
	return ret
}
