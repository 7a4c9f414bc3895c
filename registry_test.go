/*
 * registry_test.go, part of qhop.
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
	"errors"
	"testing"
)

func TestRegistry(Te *testing.T) {
	top, _ := aciSystem(Te, twoDonorAtoms(), map[int]bool{2: true, 7: true})
	reg, err := NewRegistry(top, aciDB(), map[int]bool{2: true, 7: true}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if len(reg.Sites) != 3 || len(reg.Residues) != 3 {
		Te.Fatalf("expected 3 sites and 3 residues, got %d and %d", len(reg.Sites), len(reg.Residues))
	}
	for i, want := range []int{1, 3, 6} {
		if reg.Sites[i].Index != want {
			Te.Errorf("site %d has index %d, expected %d", i, reg.Sites[i].Index, want)
		}
	}
	if !equalNames(subtypeNames(reg), "ACIH", "ACI", "ACIH") {
		Te.Errorf("wrong starting subtypes %v", subtypeNames(reg))
	}
	m := reg.Meta
	if !m.Donor[1] || m.Acceptor[1] || m.Donor[3] || !m.Acceptor[3] || !m.Donor[6] {
		Te.Errorf("wrong donor/acceptor flags %v %v", m.Donor, m.Acceptor)
	}
	if !m.ActiveH[2] || m.ActiveH[5] || !m.ActiveH[7] || !m.ActiveH[0] {
		Te.Errorf("wrong active flags %v", m.ActiveH)
	}
	if reg.HeavyOf(5) != reg.Site(3) || reg.HeavyOf(0) != nil {
		Te.Errorf("wrong hydrogen owners")
	}
	if reg.Residue(2).Current().Name != "ACI" || reg.Residue(4) != nil {
		Te.Errorf("wrong residue lookup")
	}
	if reg.Site(1).Near(3) {
		Te.Errorf("atoms of unbonded residues taken as bonded")
	}
}

func TestRegistryNear(Te *testing.T) {
	top, _ := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	//a covalent O1-C2 link puts O2 at 2 bonds from O1.
	top.AddInteraction(Bonds, []int{1, 4}, ParamSet{Func: 1, Values: []float64{0.15, 200000}})
	reg, err := NewRegistry(top, aciDB(), map[int]bool{2: true}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if !reg.Site(1).Near(3) || !reg.Site(3).Near(1) {
		Te.Errorf("atoms 2 bonds apart not taken as bonded")
	}
	//H1-C2 puts O2 at 3 bonds from O1.
	top, _ = aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	top.AddInteraction(Bonds, []int{2, 4}, ParamSet{Func: 1, Values: []float64{0.15, 200000}})
	reg, err = NewRegistry(top, aciDB(), map[int]bool{2: true}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	if !reg.Site(1).Near(3) {
		Te.Errorf("atoms 3 bonds apart not taken as bonded")
	}
}

func TestRegistryErrors(Te *testing.T) {
	var cerr *ConfigurationError
	top, _ := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	top.Atoms[3].Type = "O"
	_, err := NewRegistry(top, aciDB(), map[int]bool{2: true}, nil)
	if !errors.As(err, &cerr) || cerr.Atom != 3 {
		Te.Errorf("expected a ConfigurationError for atom 3, got %v", err)
	}
	if !IsCritical(err) {
		Te.Errorf("ConfigurationError must be critical")
	}

	ats := pairAtoms()[:5] //no H in residue 2
	top, _ = aciSystem(Te, ats, map[int]bool{2: true})
	_, err = NewRegistry(top, aciDB(), map[int]bool{2: true}, nil)
	if !errors.As(err, &cerr) || cerr.Residue != 2 {
		Te.Errorf("expected a ConfigurationError for residue 2, got %v", err)
	}

	db := aciDB()
	db.Residues[0].Subtypes = db.Residues[0].Subtypes[:1] //only ACIH
	top, _ = aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	_, err = NewRegistry(top, db, map[int]bool{2: true}, nil)
	if !errors.As(err, &cerr) || cerr.Residue != 2 {
		Te.Errorf("expected a ConfigurationError for the subtype of residue 2, got %v", err)
	}
	if _, err = New(top, NewMetadata(2), aciDB(), nil, nil, nil, nil); !errors.As(err, &cerr) {
		Te.Errorf("expected a ConfigurationError for the metadata, got %v", err)
	}
}

func TestBondedIndex(Te *testing.T) {
	top, _ := aciSystem(Te, pairAtoms(), map[int]bool{2: true})
	//the same bond written backwards must also be found.
	top.Bonded[Bonds][3].Atoms = []int{5, 3}
	reg, err := NewRegistry(top, aciDB(), map[int]bool{2: true}, nil)
	if err != nil {
		Te.Fatal(err)
	}
	nparams := len(top.Params)
	idx, err := BuildIndex(top, reg)
	if err != nil {
		Te.Fatal(err)
	}
	if idx.Len() != 4 {
		Te.Errorf("expected 4 indexed terms, got %d", idx.Len())
	}
	if len(top.Params) != nparams {
		Te.Errorf("parameters already in the topology were added again")
	}
	for _, res := range reg.Residues {
		es := idx.Entries(res)
		if len(es) != 2 {
			Te.Fatalf("residue %d: expected 2 indexed terms, got %d", res.ID, len(es))
		}
		for _, e := range es {
			if top.Bonded[e.Kind][e.Pos].Param != e.Params[res.Subtype] {
				Te.Errorf("residue %d: %s %d doesn't have the current subtype parameters", res.ID, e.Kind, e.Pos)
			}
			if e.Params[0] == e.Params[1] || e.Params[0] < 0 || e.Params[1] < 0 {
				Te.Errorf("wrong variant parameters %v", e.Params)
			}
		}
	}
	//C-O bonds are the same in all subtypes.
	if top.Bonded[Bonds][0].Param != top.Bonded[Bonds][2].Param {
		Te.Errorf("C-O bonds should share parameters")
	}
}
