/*
 * evaluate.go, part of qhop.
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
	"slices"

	v3 "github.com/rmera/qhop/v3"
)

// KB is the Boltzmann constant in kJ/(mol K).
const KB = 0.0083144626

// minDist is the distance below which two atoms are taken to coincide, nm.
const minDist = 1e-6

// Candidate is a possible hop. All atom indexes are global, so
// candidates can be sent to other ranks.
type Candidate struct {
	Donor    int `json:"donor"`
	Acceptor int `json:"acceptor"`
	H        int `json:"h"`    //the hydrogen that leaves the donor
	Slot     int `json:"slot"` //the parked hydrogen that becomes active on the acceptor

	DonorRes       int `json:"donor_res"`
	AcceptorRes    int `json:"acceptor_res"`
	DonorBefore    int `json:"donor_before"` //subtype indexes
	DonorAfter     int `json:"donor_after"`
	AcceptorBefore int `json:"acceptor_before"`
	AcceptorAfter  int `json:"acceptor_after"`

	Prob       float64 `json:"p"`
	DeltaE     float64 `json:"delta_e"` //kJ/mol
	Dist       float64 `json:"r"`       //donor-acceptor, nm
	Angle      float64 `json:"angle"`   //donor-H-acceptor, radians
	BondLength float64 `json:"bond_length"`

	//Toward is the unit vector from the acceptor to the donor, and HVel the
	//velocity of H, both at evaluation time. A rank that holds the acceptor
	//but not the donor places the new proton with them.
	Toward [3]float64 `json:"toward"`
	HVel   [3]float64 `json:"h_vel"`
}

func (C *Candidate) String() string {
	return fmt.Sprintf("%d(H%d)->%d(H%d) p=%.4f dE=%.3f r=%.4f", C.Donor, C.H, C.Acceptor, C.Slot, C.Prob, C.DeltaE, C.Dist)
}

// afterProtons returns the occupied slot names of res with the given changes.
func afterProtons(res *Residue, remove, add string) []string {
	ret := make([]string, 0, len(res.Current().Protons)+1)
	for _, v := range res.Current().Protons {
		if v != remove {
			ret = append(ret, v)
		}
	}
	if add != "" {
		ret = append(ret, add)
	}
	return ret
}

func slotName(t *Titratable, local int) string {
	return t.Site.Hydrogens[slices.Index(t.Slots, local)]
}

// Evaluate returns the hop candidate for a proton going from don to acc in the
// configuration st, at temperature T (K). It returns nil and no error if the
// hop is not possible: don has no proton, acc has no free slot, no subtype
// matches the final protonation of either residue, the database has no
// transition for the current subtypes, or the atoms are farther apart than
// the transition allows. Evaluate has no side effects.
func Evaluate(reg *Registry, don, acc *Titratable, st *State, db Database, T float64) (*Candidate, error) {
	if don == acc || !don.Role().CanDonate() || !acc.Role().CanAccept() {
		return nil, nil
	}
	hs := reg.ActiveSlots(don)
	slots := reg.FreeSlots(acc)
	if len(hs) == 0 || len(slots) == 0 {
		return nil, nil
	}
	da := st.X.PBCSub(don.Local, acc.Local, st.Box)
	r := v3.Norm(da)
	if r < minDist {
		return nil, &GeometryDegenerateError{Donor: don.Index, Acceptor: acc.Index, Msg: "donor and acceptor coincide"}
	}
	//the most linear D-H...A is used. Ties go to the lowest index.
	h, theta := -1, -1.0
	for _, hl := range hs {
		dh := st.X.PBCSub(don.Local, hl, st.Box)
		hd := v3.Scale(-1, dh)
		ha := v3.Sub(da, dh)
		if v3.IsZero(hd) || v3.IsZero(ha) {
			return nil, &GeometryDegenerateError{Donor: don.Index, Acceptor: acc.Index, Msg: fmt.Sprintf("hydrogen %d on top of an atom", reg.Global(hl))}
		}
		a := v3.Angle(hd, ha)
		if a > theta || (a == theta && reg.Global(hl) < reg.Global(h)) {
			h, theta = hl, a
		}
	}
	slot := slots[0]
	for _, s := range slots[1:] {
		if reg.Global(s) < reg.Global(slot) {
			slot = s
		}
	}
	dres, ares := don.Res, acc.Res
	c := &Candidate{
		Donor:          don.Index,
		Acceptor:       acc.Index,
		H:              reg.Global(h),
		Slot:           reg.Global(slot),
		DonorRes:       dres.ID,
		AcceptorRes:    ares.ID,
		DonorBefore:    dres.Subtype,
		AcceptorBefore: ares.Subtype,
		Dist:           r,
		Angle:          theta,
	}
	hname, sname := slotName(don, h), slotName(acc, slot)
	if dres == ares {
		c.DonorAfter = dres.Type.SubtypeWith(afterProtons(dres, hname, sname))
		c.AcceptorAfter = c.DonorAfter
	} else {
		c.DonorAfter = dres.Type.SubtypeWith(afterProtons(dres, hname, ""))
		c.AcceptorAfter = ares.Type.SubtypeWith(afterProtons(ares, "", sname))
	}
	if c.DonorAfter < 0 || c.AcceptorAfter < 0 {
		return nil, nil
	}
	tr, ok := db.Transition(dres.Current().Name, ares.Current().Name)
	if !ok || r > tr.RMax {
		return nil, nil
	}
	c.BondLength = tr.BondLength
	c.Toward = v3.Unit(v3.Scale(-1, da))
	if st.V != nil {
		c.HVel = st.V.Vec(h)
	}
	c.DeltaE = tr.EnergyAt(r)
	c.Prob = probability(tr, r, theta, c.DeltaE, T)
	return c, nil
}

// probability returns the hop probability at distance r, D-H-A angle theta and
// energy dE, clamped to [0,1].
func probability(tr *Transition, r, theta, dE, T float64) float64 {
	if math.IsNaN(dE) {
		return 0
	}
	gdist := 1.0
	if r > tr.ROpt {
		gdist = (tr.RMax - r) / (tr.RMax - tr.ROpt)
	}
	gang := math.Pow((1-math.Cos(theta))/2, tr.AnglePower)
	boltz := 1.0
	if dE > 0 {
		if T <= 0 {
			boltz = 0
		} else {
			boltz = math.Exp(-dE / (KB * T))
		}
	}
	p := gdist * gang * boltz * tr.attempt()
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	return math.Min(p, 1)
}
