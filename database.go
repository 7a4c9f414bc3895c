/*
 * database.go, part of qhop.
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
	"strings"
	"sync"

	"gonum.org/v1/gonum/interp"
)

// Role is the set of things a titratable atom can do with a proton.
type Role uint8

const (
	Donor Role = 1 << iota
	Acceptor
	Both = Donor | Acceptor
)

// CanDonate returns true if the role includes donating.
func (r Role) CanDonate() bool { return r&Donor != 0 }

// CanAccept returns true if the role includes accepting.
func (r Role) CanAccept() bool { return r&Acceptor != 0 }

func (r Role) String() string {
	switch r {
	case Donor:
		return "donor"
	case Acceptor:
		return "acceptor"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "donor":
		*r = Donor
	case "acceptor":
		*r = Acceptor
	case "both":
		*r = Both
	default:
		return fmt.Errorf("unknown role %q", string(b))
	}
	return nil
}

// Site is a titratable heavy atom of a residue type, with the hydrogens it can carry.
type Site struct {
	Atom      string   `json:"atom"`
	Type      string   `json:"type,omitempty"` //force-field type. Empty means any.
	Role      Role     `json:"role"`
	Hydrogens []string `json:"hydrogens"`
}

// Subtype is one protonation variant of a residue type.
type Subtype struct {
	Name string `json:"name"`
	//Protons are the names of the hydrogen slots occupied in this subtype.
	Protons []string `json:"protons"`
	//Charges by atom name. Atoms not present keep their topology charge.
	Charges map[string]float64 `json:"charges"`
}

// HasProton returns true if the slot with the given name is occupied in the subtype.
func (S *Subtype) HasProton(name string) bool {
	return slices.Contains(S.Protons, name)
}

// Charge returns the sum of the charges of the subtype.
func (S *Subtype) Charge() float64 {
	q := make([]float64, 0, len(S.Charges))
	for _, v := range S.Charges {
		q = append(q, v)
	}
	return sortedSum(q)
}

// BondedVariant gives the parameters of one bonded term of a residue type for
// each subtype. Subtypes not in Params don't support the term.
type BondedVariant struct {
	Kind   Kind                `json:"kind"`
	Atoms  []string            `json:"atoms"`
	Params map[string]ParamSet `json:"params"`
}

// ResidueType is a titratable residue with all its protonation variants.
type ResidueType struct {
	Name     string           `json:"name"`
	Sites    []*Site          `json:"sites"`
	Subtypes []*Subtype       `json:"subtypes"`
	Bonded   []*BondedVariant `json:"bonded,omitempty"`
}

// Subtype returns the index of the subtype with the given name, or -1.
func (R *ResidueType) Subtype(name string) int {
	for i, v := range R.Subtypes {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// SubtypeWith returns the index of the subtype whose occupied slots are exactly
// protons (in any order), or -1 if there is none.
func (R *ResidueType) SubtypeWith(protons []string) int {
	want := slices.Clone(protons)
	slices.Sort(want)
	for i, v := range R.Subtypes {
		have := slices.Clone(v.Protons)
		slices.Sort(have)
		if slices.Equal(have, want) {
			return i
		}
	}
	return -1
}

// Site returns the site on the atom with the given name, or nil.
func (R *ResidueType) Site(atom string) *Site {
	for _, v := range R.Sites {
		if v.Atom == atom {
			return v
		}
	}
	return nil
}

// EnergyPoint is a point of a transition energy profile.
type EnergyPoint struct {
	R float64 `json:"r"` //donor-acceptor distance, nm
	E float64 `json:"e"` //energy of the hop, kJ/mol
}

// Transition holds the hopping parameters between a donor subtype and an acceptor subtype.
type Transition struct {
	Donor    string `json:"donor"`
	Acceptor string `json:"acceptor"`

	//Energy is the energy difference of the hop as a function of the donor-acceptor
	//distance. It is interpolated linearly, and constant beyond the end points.
	Energy []EnergyPoint `json:"energy"`

	ROpt       float64 `json:"r_opt"` //below this distance the geometric factor is 1
	RMax       float64 `json:"r_max"` //beyond this distance there is no hop
	AnglePower float64 `json:"angle_power"`
	Attempt    float64 `json:"attempt,omitempty"` //probability prefactor, 0 is taken as 1
	BondLength float64 `json:"bond_length"`       //acceptor-H distance for the new proton, nm

	once sync.Once
	pl   *interp.PiecewiseLinear
}

// Check returns an error if the parameters can't be used.
func (T *Transition) Check() error {
	if T.RMax <= 0 || T.ROpt < 0 || T.ROpt > T.RMax {
		return fmt.Errorf("transition %s->%s: need 0 <= r_opt <= r_max, r_max > 0 (got %g, %g)", T.Donor, T.Acceptor, T.ROpt, T.RMax)
	}
	if T.BondLength <= 0 {
		return fmt.Errorf("transition %s->%s: bond_length must be positive", T.Donor, T.Acceptor)
	}
	for i := 1; i < len(T.Energy); i++ {
		if T.Energy[i].R <= T.Energy[i-1].R {
			return fmt.Errorf("transition %s->%s: energy points must have increasing distances", T.Donor, T.Acceptor)
		}
	}
	return nil
}

// EnergyAt returns the energy of the hop at the donor-acceptor distance r.
func (T *Transition) EnergyAt(r float64) float64 {
	switch len(T.Energy) {
	case 0:
		return 0
	case 1:
		return T.Energy[0].E
	}
	T.once.Do(func() {
		xs := make([]float64, len(T.Energy))
		ys := make([]float64, len(T.Energy))
		for i, v := range T.Energy {
			xs[i] = v.R
			ys[i] = v.E
		}
		//Fit panics on unsorted tables, Check reports them.
		for i := 1; i < len(xs); i++ {
			if xs[i] <= xs[i-1] {
				return
			}
		}
		pl := new(interp.PiecewiseLinear)
		if pl.Fit(xs, ys) == nil {
			T.pl = pl
		}
	})
	if T.pl == nil {
		return math.NaN()
	}
	return T.pl.Predict(r)
}

func (T *Transition) attempt() float64 {
	if T.Attempt == 0 {
		return 1
	}
	return T.Attempt
}

// DB is an in-memory Database.
type DB struct {
	Residues    []*ResidueType `json:"residues"`
	Transitions []*Transition  `json:"transitions"`

	once sync.Once
	res  map[string]*ResidueType
	tr   map[[2]string]*Transition
}

func (D *DB) index() {
	D.once.Do(func() {
		D.res = make(map[string]*ResidueType, len(D.Residues))
		for _, v := range D.Residues {
			D.res[v.Name] = v
		}
		D.tr = make(map[[2]string]*Transition, len(D.Transitions))
		for _, v := range D.Transitions {
			D.tr[[2]string{v.Donor, v.Acceptor}] = v
		}
	})
}

// ResidueType returns the residue type with the given name.
func (D *DB) ResidueType(name string) (*ResidueType, bool) {
	D.index()
	r, ok := D.res[name]
	return r, ok
}

// Transition returns the parameters for a hop from the donor subtype to the acceptor subtype.
func (D *DB) Transition(donor, acceptor string) (*Transition, bool) {
	D.index()
	t, ok := D.tr[[2]string{donor, acceptor}]
	return t, ok
}

// Subtypes returns the residue type and subtype index for the subtype with the given
// name, searching all residue types.
func (D *DB) Subtypes(name string) (*ResidueType, int) {
	for _, r := range D.Residues {
		if i := r.Subtype(name); i >= 0 {
			return r, i
		}
	}
	return nil, -1
}
