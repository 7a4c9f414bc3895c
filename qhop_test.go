/*
 * qhop_test.go, part of qhop.
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
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestHopScenario(Te *testing.T) {
	Q, st := newPair(Te, nil)
	top := Q.Reg.Top
	q0 := top.Charge()
	lens := top.ListLens()
	p0 := params(top)
	vh := st.V.Vec(2)
	r, err := Q.Do(context.Background(), st)
	if err != nil {
		Te.Fatal(err)
	}
	if len(r.Candidates) != 1 || len(r.Applied) != 1 || r.Applied[0].Donor != 1 || r.Applied[0].Acceptor != 3 {
		Te.Fatalf("expected the hop 1->3, got %+v", r)
	}
	if !equalNames(subtypeNames(Q.Reg), "ACI", "ACIH") {
		Te.Errorf("wrong subtypes after the hop %v", subtypeNames(Q.Reg))
	}
	m := Q.Reg.Meta
	if m.ActiveH[2] || !m.ActiveH[5] {
		Te.Errorf("active hydrogen not moved %v", m.ActiveH)
	}
	if m.Donor[1] || !m.Acceptor[1] || !m.Donor[3] || m.Acceptor[3] {
		Te.Errorf("wrong flags after the hop %v %v", m.Donor, m.Acceptor)
	}
	if q := top.Charge(); !scalar.EqualWithinAbs(q, q0, 1e-9) {
		Te.Errorf("charge changed from %g to %g", q0, q)
	}
	if top.Atoms[1].Charge != -1 || top.Atoms[3].Charge != -0.7 || top.Atoms[5].Charge != 0.4 {
		Te.Errorf("wrong charges after the hop")
	}
	if top.ListLens() != lens {
		Te.Errorf("bonded list lengths changed")
	}
	p1 := params(top)
	if p1[Bonds][0] != p0[Bonds][0] || p1[Bonds][2] != p0[Bonds][2] {
		Te.Errorf("C-O parameters changed")
	}
	//the variable terms swap between the two residues.
	if p1[Bonds][1] != p0[Bonds][3] || p1[Bonds][3] != p0[Bonds][1] || p1[Angles][0] != p0[Angles][1] || p1[Angles][1] != p0[Angles][0] {
		Te.Errorf("wrong parameters after the hop: %v before %v", p1, p0)
	}
	if !near(st.X.Vec(5), [3]float64{0.30, 0, 0}) {
		Te.Errorf("new proton at %v", st.X.Vec(5))
	}
	if st.V.Vec(5) != vh || st.V.Vec(2) != st.V.Vec(1) {
		Te.Errorf("wrong velocities after the hop")
	}
	if !near(st.X.Vec(2), [3]float64{0.24, 0, 0}) {
		Te.Errorf("parked proton moved to %v", st.X.Vec(2))
	}
	//now the hop goes back.
	r, err = Q.Do(context.Background(), st)
	if err != nil {
		Te.Fatal(err)
	}
	if len(r.Applied) != 1 || r.Applied[0].Donor != 3 || !equalNames(subtypeNames(Q.Reg), "ACIH", "ACI") {
		Te.Errorf("backwards hop not done: %+v", r)
	}
	if !slices.Equal(params(top)[Bonds], p0[Bonds]) {
		Te.Errorf("parameters not restored by the backwards hop")
	}
}

func TestHopTwoDonors(Te *testing.T) {
	occ := map[int]bool{2: true, 7: true}
	top, st := aciSystem(Te, twoDonorAtoms(), occ)
	Q, err := New(top, nil, aciDB(), nil, nil, occ, nil)
	if err != nil {
		Te.Fatal(err)
	}
	r, err := Q.Do(context.Background(), st)
	if err != nil {
		Te.Fatal(err)
	}
	if len(r.Candidates) != 2 {
		Te.Fatalf("expected 2 candidates, got %d", len(r.Candidates))
	}
	if len(r.Applied) != 1 || r.Applied[0].Donor != 1 {
		Te.Fatalf("expected only the hop from 1, got %+v", r.Applied)
	}
	if !equalNames(subtypeNames(Q.Reg), "ACI", "ACIH", "ACIH") {
		Te.Errorf("wrong subtypes %v", subtypeNames(Q.Reg))
	}
}

func TestHopZeroProbability(Te *testing.T) {
	for _, mode := range []Mode{Unscrambled, Scrambled} {
		db := aciDB()
		db.Transitions[0].Energy = []EnergyPoint{{R: 0.2, E: 1e6}}
		top, st := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
		opts := DefaultOptions()
		opts.Mode(mode)
		Q, err := New(top, nil, db, nil, nil, map[int]bool{2: true}, opts)
		if err != nil {
			Te.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			st.Step = int64(i)
			r, err := Q.Do(context.Background(), st)
			if err != nil {
				Te.Fatal(err)
			}
			if len(r.Candidates) != 1 || len(r.Applied) != 0 {
				Te.Fatalf("%s: hop with p=0: %+v", mode, r)
			}
		}
	}
}

func TestHopNst(Te *testing.T) {
	opts := DefaultOptions()
	opts.Nst(10)
	Q, st := newPair(Te, opts)
	st.Step = 5
	r, err := Q.Do(context.Background(), st)
	if err != nil || !r.Skipped || len(r.Applied) != 0 {
		Te.Errorf("step 5 not skipped: %+v %v", r, err)
	}
	st.Step = 20
	r, err = Q.Do(context.Background(), st)
	if err != nil || r.Skipped || len(r.Applied) != 1 {
		Te.Errorf("step 20 skipped: %+v %v", r, err)
	}
}

func TestHopUnsupported(Te *testing.T) {
	db := aciDB()
	delete(db.Residues[0].Bonded[1].Params, "ACIH") //no C-O-H angle for the protonated form
	top, st := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Log(NewLogger(&buf, LogWarn))
	Q, err := New(top, nil, db, nil, nil, map[int]bool{2: true}, opts)
	if err != nil {
		Te.Fatal(err)
	}
	p0 := params(top)
	q := make([]float64, top.Len())
	for i, a := range top.Atoms {
		q[i] = a.Charge
	}
	x0 := st.X.Clone()
	r, err := Q.Do(context.Background(), st)
	if err != nil {
		Te.Fatal(err)
	}
	if len(r.Selected) != 1 || len(r.Dropped) != 1 || len(r.Applied) != 0 {
		Te.Fatalf("expected a dropped hop, got %+v", r)
	}
	if !equalNames(subtypeNames(Q.Reg), "ACIH", "ACI") || !Q.Reg.Meta.ActiveH[2] || Q.Reg.Meta.ActiveH[5] {
		Te.Errorf("a dropped hop changed the system")
	}
	for i, a := range top.Atoms {
		if a.Charge != q[i] {
			Te.Errorf("a dropped hop changed the charge of atom %d", i)
		}
	}
	if !slices.Equal(params(top)[Angles], p0[Angles]) || !slices.Equal(params(top)[Bonds], p0[Bonds]) {
		Te.Errorf("a dropped hop changed the parameters")
	}
	for i := 0; i < top.Len(); i++ {
		if !near(st.X.Vec(i), x0.Vec(i)) {
			Te.Errorf("a dropped hop moved atom %d", i)
		}
	}
	if !strings.Contains(buf.String(), "dropped") {
		Te.Errorf("dropped hop not logged: %q", buf.String())
	}
	err = Q.Mut.Apply(&r.Selected[0].Candidate, st)
	var uerr *UnsupportedTransitionError
	if !errors.As(err, &uerr) || uerr.Residue != 2 || IsCritical(err) {
		Te.Errorf("expected an UnsupportedTransitionError for residue 2, got %v", err)
	}
}

func TestHopCharge(Te *testing.T) {
	db := aciDB()
	db.Residues[0].Subtypes[0].Charges["C"] = 0.35 //ACIH now has a charge of 0.05
	top, st := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	Q, err := New(top, nil, db, nil, nil, map[int]bool{2: true}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	//residue 1 still has the old charges, so the hop would create charge.
	r, err := Q.Do(context.Background(), st)
	if err != nil {
		Te.Fatal(err)
	}
	if len(r.Dropped) != 1 || len(r.Applied) != 0 {
		Te.Errorf("hop changing the total charge not dropped: %+v", r)
	}
}

func TestFoldInactive(Te *testing.T) {
	Q, st := newPair(Te, nil)
	h0 := st.X.Vec(5)
	st.X.SetVec(5, [3]float64{5, 5, 5}) //the parked proton drifts
	Q.Mut.FoldInactive(st)
	if near(st.X.Vec(5), h0) {
		Te.Fatalf("first fold must keep the current position")
	}
	st.X.SetVec(5, h0)
	Q.Mut.offsets = map[int][3]float64{}
	Q.Mut.FoldInactive(st)
	o2 := st.X.Vec(3)
	st.X.SetVec(3, [3]float64{o2[0] + 0.05, o2[1], o2[2] + 0.02}) //the acceptor moves
	Q.Mut.FoldInactive(st)
	want := [3]float64{h0[0] + 0.05, h0[1], h0[2] + 0.02}
	if !near(st.X.Vec(5), want) || st.V.Vec(5) != st.V.Vec(3) {
		Te.Errorf("parked proton at %v, expected %v", st.X.Vec(5), want)
	}
	//active hydrogens are not touched.
	if !near(st.X.Vec(2), [3]float64{0.24, 0, 0}) {
		Te.Errorf("active proton moved")
	}
}

func TestProtonate(Te *testing.T) {
	Q, st := newPair(Te, nil)
	acc := Q.Reg.Site(3)
	if err := Q.Mut.Protonate(acc); err != nil {
		Te.Fatal(err)
	}
	if !equalNames(subtypeNames(Q.Reg), "ACIH", "ACIH") || !Q.Reg.Meta.ActiveH[5] || Q.Reg.Meta.Acceptor[3] {
		Te.Errorf("residue 2 not protonated")
	}
	if err := Q.Mut.Protonate(acc); err == nil {
		Te.Errorf("protonated a full site")
	}
	if q := Q.Reg.Charge(); !scalar.EqualWithinAbs(q, 0, 1e-9) {
		Te.Errorf("wrong charge %g after protonation", q)
	}
	don := Q.Reg.Site(1)
	if err := Q.Mut.Deprotonate(don, st); err != nil {
		Te.Fatal(err)
	}
	if !equalNames(subtypeNames(Q.Reg), "ACI", "ACIH") || Q.Reg.Meta.ActiveH[2] || Q.Reg.Meta.Donor[1] {
		Te.Errorf("residue 1 not deprotonated")
	}
	if err := Q.Mut.Deprotonate(don, st); err == nil {
		Te.Errorf("deprotonated an empty site")
	}
}

// DIO has two oxygens and one proton that can move between them.
func dioDB() *DB {
	return &DB{
		Residues: []*ResidueType{{
			Name: "DIO",
			Sites: []*Site{
				{Atom: "O1", Role: Both, Hydrogens: []string{"H1"}},
				{Atom: "O2", Role: Both, Hydrogens: []string{"H2"}},
			},
			Subtypes: []*Subtype{
				{Name: "DIOA", Protons: []string{"H1"}, Charges: map[string]float64{"O1": -0.5, "H1": 0.5, "O2": -1, "H2": 0}},
				{Name: "DIOB", Protons: []string{"H2"}, Charges: map[string]float64{"O1": -1, "H1": 0, "O2": -0.5, "H2": 0.5}},
			},
		}},
		Transitions: []*Transition{
			{Donor: "DIOA", Acceptor: "DIOA", ROpt: 0.3, RMax: 0.32, AnglePower: 0, BondLength: 0.1},
			{Donor: "DIOB", Acceptor: "DIOB", ROpt: 0.3, RMax: 0.32, AnglePower: 0, BondLength: 0.1},
		},
	}
}

func TestIntramolecular(Te *testing.T) {
	for _, intra := range []bool{false, true} {
		ats := []*Atom{
			{Name: "O1", ID: 0, Molname: "DIO", MolID: 1, Charge: -0.5},
			{Name: "H1", ID: 1, Molname: "DIO", MolID: 1, Charge: 0.5},
			{Name: "C", ID: 2, Molname: "DIO", MolID: 1},
			{Name: "O2", ID: 3, Molname: "DIO", MolID: 1, Charge: -1},
			{Name: "H2", ID: 4, Molname: "DIO", MolID: 1},
		}
		top := NewTopology(ats)
		for _, b := range [][]int{{0, 1}, {0, 2}, {2, 3}, {3, 4}} {
			top.AddInteraction(Bonds, b, ParamSet{Func: 1, Values: []float64{0.1, 1000}})
		}
		state := &State{X: matrixOf([3]float64{0, 0, 0}, [3]float64{0.1, 0, 0}, [3]float64{0.12, 0.1, 0}, [3]float64{0.25, 0, 0}, [3]float64{0.25, 0.1, 0})}
		opts := DefaultOptions()
		opts.Intramolecular(intra)
		Q, err := New(top, nil, dioDB(), nil, nil, map[int]bool{1: true}, opts)
		if err != nil {
			Te.Fatal(err)
		}
		if !Q.Reg.Site(0).Near(3) {
			Te.Fatalf("oxygens of one residue not taken as bonded")
		}
		r, err := Q.Do(context.Background(), state)
		if err != nil {
			Te.Fatal(err)
		}
		if !intra {
			if len(r.Candidates) != 0 {
				Te.Errorf("intramolecular candidate without the option: %+v", r.Candidates)
			}
			continue
		}
		if len(r.Applied) != 1 || !equalNames(subtypeNames(Q.Reg), "DIOB") {
			Te.Fatalf("intramolecular hop not done: %+v", r)
		}
		if !near(state.X.Vec(4), [3]float64{0.15, 0, 0}) || !Q.Reg.Meta.ActiveH[4] || Q.Reg.Meta.ActiveH[1] {
			Te.Errorf("proton not moved within the residue: %v", state.X.Vec(4))
		}
		if !scalar.EqualWithinAbs(top.Charge(), -1, 1e-9) {
			Te.Errorf("charge changed to %g", top.Charge())
		}
	}
}

// splitComm is a rank that owns the atoms in home and receives extra from the
// other rank at every AllGather.
type splitComm struct {
	rank  int
	home  map[int]bool
	extra []Candidate
}

func (C *splitComm) Rank() int            { return C.rank }
func (C *splitComm) Size() int            { return 2 }
func (C *splitComm) Home(global int) bool { return C.home[global] }

func (C *splitComm) AllGather(ctx context.Context, step int64, local []Candidate) ([][]Candidate, error) {
	if C.rank == 0 {
		return [][]Candidate{local, C.extra}, nil
	}
	return [][]Candidate{C.extra, local}, nil
}

// aciPart builds the part of an ACI system that starts at the global index first.
// occ is keyed by global index.
func aciPart(Te *testing.T, ats []tatom, first int, occ map[int]bool) (*Topology, *State) {
	Te.Helper()
	locc := make(map[int]bool)
	for g := range occ {
		locc[g-first] = true
	}
	top, st := aciSystem(Te, ats, locc)
	for i, a := range top.Atoms {
		a.ID = first + i
		st.V.SetVec(i, [3]float64{0.01 * float64(first+i+1), 0, 0})
	}
	return top, st
}

func TestHopSplitRanks(Te *testing.T) {
	full, fst := newPair(Te, nil)
	cs, _, err := full.Candidates(fst)
	if err != nil || len(cs) != 1 {
		Te.Fatalf("expected one candidate, got %v %v", cs, err)
	}
	vh := fst.V.Vec(2)
	occ := map[int]bool{2: true}

	//rank 0 holds residue 1, the donor.
	top0, st0 := aciPart(Te, pairAtoms()[:3], 0, occ)
	c0 := &splitComm{rank: 0, home: map[int]bool{0: true, 1: true, 2: true}, extra: cs}
	Q0, err := New(top0, nil, aciDB(), nil, c0, occ, nil)
	if err != nil {
		Te.Fatal(err)
	}
	//rank 1 holds residue 2, the acceptor.
	top1, st1 := aciPart(Te, pairAtoms()[3:], 3, occ)
	c1 := &splitComm{rank: 1, home: map[int]bool{3: true, 4: true, 5: true}, extra: cs}
	Q1, err := New(top1, nil, aciDB(), nil, c1, occ, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if l, _, err := Q0.Candidates(st0); err != nil || len(l) != 0 {
		Te.Fatalf("donor rank evaluated a hop without the acceptor: %v %v", l, err)
	}
	r0, err := Q0.Do(context.Background(), st0)
	if err != nil {
		Te.Fatal(err)
	}
	r1, err := Q1.Do(context.Background(), st1)
	if err != nil {
		Te.Fatal(err)
	}
	for i, r := range []*Report{r0, r1} {
		if len(r.Applied) != 1 || r.Remote != 0 || len(r.Dropped) != 0 {
			Te.Fatalf("rank %d did not apply its side of the hop: %+v", i, r)
		}
	}
	if !equalNames(subtypeNames(Q0.Reg), "ACI") || !equalNames(subtypeNames(Q1.Reg), "ACIH") {
		Te.Errorf("wrong subtypes %v %v", subtypeNames(Q0.Reg), subtypeNames(Q1.Reg))
	}
	if top0.Atoms[1].Charge != -1 || top0.Atoms[2].Charge != 0 || top1.Atoms[0].Charge != -0.7 || top1.Atoms[2].Charge != 0.4 {
		Te.Errorf("wrong charges after the hop")
	}
	if !scalar.EqualWithinAbs(top0.Charge()+top1.Charge(), -1, 1e-9) {
		Te.Errorf("total charge changed to %g", top0.Charge()+top1.Charge())
	}
	if Q0.Reg.Meta.ActiveH[2] || Q0.Reg.Meta.Donor[1] || !Q1.Reg.Meta.ActiveH[2] || !Q1.Reg.Meta.Donor[0] {
		Te.Errorf("wrong flags after the hop")
	}
	if !near(st1.X.Vec(2), [3]float64{0.30, 0, 0}) || st1.V.Vec(2) != vh {
		Te.Errorf("new proton at %v with velocity %v", st1.X.Vec(2), st1.V.Vec(2))
	}
	if !near(st0.X.Vec(2), [3]float64{0.24, 0, 0}) || st0.V.Vec(2) != st0.V.Vec(1) {
		Te.Errorf("proton not parked on the donor")
	}
	//both sides together give what the serial run gives.
	if _, err := full.Do(context.Background(), fst); err != nil {
		Te.Fatal(err)
	}
	if !near(fst.X.Vec(5), st1.X.Vec(2)) || fst.V.Vec(5) != st1.V.Vec(2) || fst.V.Vec(2) != st0.V.Vec(2) {
		Te.Errorf("split hop differs from the serial one")
	}

	//a hop where this rank holds neither atom.
	c1.extra = []Candidate{{Donor: 100, Acceptor: 101, H: 102, Slot: 103, DonorRes: 50, AcceptorRes: 51, Prob: 1}}
	st1.Step = 1
	r1, err = Q1.Do(context.Background(), st1)
	if err != nil {
		Te.Fatal(err)
	}
	if r1.Remote != 1 || len(r1.Applied) != 0 {
		Te.Errorf("hop on other atoms not counted as remote: %+v", r1)
	}

	//without the direction, the acceptor side can't place the proton.
	bad := cs[0]
	bad.Toward = [3]float64{}
	top2, st2 := aciPart(Te, pairAtoms()[3:], 3, occ)
	Q2, err := New(top2, nil, aciDB(), nil, &splitComm{rank: 1, home: c1.home}, occ, nil)
	if err != nil {
		Te.Fatal(err)
	}
	var cerr *ConsistencyViolation
	if err := Q2.Mut.Apply(&bad, st2); !errors.As(err, &cerr) {
		Te.Errorf("expected a ConsistencyViolation, got %v", err)
	}
}
