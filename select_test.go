/*
 * select_test.go, part of qhop.
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
	"math/rand/v2"
	"slices"
	"testing"
)

// randomCandidates returns n candidates among a few atoms, so that many of them
// share atoms. Hydrogens and residues are derived from the heavy atoms.
func randomCandidates(n int, rng *rand.Rand) []Candidate {
	ret := make([]Candidate, n)
	for i := range ret {
		d := rng.IntN(10)
		a := rng.IntN(10)
		if a == d {
			a = (a + 1) % 10
		}
		ret[i] = Candidate{
			Donor: d, Acceptor: a, H: 100 + d, Slot: 100 + a,
			DonorRes: d, AcceptorRes: a,
			Prob: rng.Float64(),
		}
	}
	return ret
}

func TestSelectConflictFree(Te *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, mode := range []Mode{Unscrambled, Scrambled, Single} {
		for i := 0; i < 50; i++ {
			hops := Select(randomCandidates(30, rng), 7, int64(i), mode)
			if err := CheckClaims(hops); err != nil {
				Te.Fatalf("%s: %v", mode, err)
			}
			if mode == Single && len(hops) > 1 {
				Te.Fatalf("%d hops in single mode", len(hops))
			}
			for j, h := range hops {
				if h.Order != j || !(h.Draw < h.Prob) {
					Te.Errorf("%s: wrong hop %+v", mode, h)
				}
			}
		}
	}
}

func TestSelectDeterministic(Te *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	cands := randomCandidates(40, rng)
	orig := slices.Clone(cands)
	for _, mode := range []Mode{Unscrambled, Scrambled} {
		a := Select(cands, 11, 100, mode)
		b := Select(cands, 11, 100, mode)
		if !slices.Equal(a, b) {
			Te.Errorf("%s: different results for the same input", mode)
		}
		rev := slices.Clone(cands)
		slices.Reverse(rev)
		if c := Select(rev, 11, 100, mode); !slices.Equal(a, c) {
			Te.Errorf("%s: result depends on the order of the candidates", mode)
		}
	}
	if !slices.Equal(cands, orig) {
		Te.Errorf("Select changed its input")
	}
}

func TestSelectProbabilityBounds(Te *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	cands := randomCandidates(40, rng)
	for i := range cands {
		cands[i].Prob = 0
	}
	for _, mode := range []Mode{Unscrambled, Scrambled, Single} {
		for step := int64(0); step < 20; step++ {
			if hops := Select(cands, 13, step, mode); len(hops) != 0 {
				Te.Errorf("%s: accepted hops with p=0: %v", mode, hops)
			}
		}
	}
	//disjoint candidates with p=1 are all accepted.
	var sure []Candidate
	for i := 0; i < 10; i++ {
		sure = append(sure, Candidate{Donor: 2 * i, Acceptor: 2*i + 1, H: 100 + 2*i, Slot: 101 + 2*i, DonorRes: 2 * i, AcceptorRes: 2*i + 1, Prob: 1})
	}
	for _, mode := range []Mode{Unscrambled, Scrambled} {
		for step := int64(0); step < 20; step++ {
			if hops := Select(sure, 13, step, mode); len(hops) != len(sure) {
				Te.Errorf("%s: %d of %d hops with p=1 accepted", mode, len(hops), len(sure))
			}
		}
	}
}

func TestSelectFirstClaim(Te *testing.T) {
	//two donors on the same acceptor, the lower index wins in unscrambled mode.
	cands := []Candidate{
		{Donor: 6, Acceptor: 3, H: 7, Slot: 5, DonorRes: 3, AcceptorRes: 2, Prob: 1},
		{Donor: 1, Acceptor: 3, H: 2, Slot: 5, DonorRes: 1, AcceptorRes: 2, Prob: 1},
	}
	for step := int64(0); step < 10; step++ {
		hops := Select(cands, 1, step, Unscrambled)
		if len(hops) != 1 || hops[0].Donor != 1 {
			Te.Fatalf("expected only the hop from 1, got %v", hops)
		}
	}
	//in scrambled mode either can win, but only one.
	won := map[int]bool{}
	for step := int64(0); step < 64; step++ {
		hops := Select(cands, 1, step, Scrambled)
		if len(hops) != 1 {
			Te.Fatalf("expected one hop, got %v", hops)
		}
		won[hops[0].Donor] = true
	}
	if !won[1] || !won[6] {
		Te.Errorf("scrambling doesn't change the order: %v", won)
	}
}

func TestDraw(Te *testing.T) {
	if Draw(1, 2, 3, 4) != Draw(1, 2, 3, 4) {
		Te.Errorf("Draw is not deterministic")
	}
	seen := map[float64]bool{}
	for _, v := range [][4]int{{1, 2, 3, 4}, {1, 2, 4, 3}, {1, 3, 3, 4}, {2, 2, 3, 4}} {
		u := Draw(uint64(v[0]), int64(v[1]), v[2], v[3])
		if u < 0 || u >= 1 {
			Te.Errorf("draw %g out of [0,1)", u)
		}
		seen[u] = true
	}
	if len(seen) != 4 {
		Te.Errorf("different arguments gave the same draw")
	}
	if RankSeed(1, 0) == RankSeed(1, 1) || StepSeed(1, 0) == StepSeed(1, 1) {
		Te.Errorf("seed derivation collides")
	}
}

func TestCheckClaims(Te *testing.T) {
	hops := []Hop{
		{Candidate: Candidate{Donor: 1, Acceptor: 3, H: 2, Slot: 5, DonorRes: 1, AcceptorRes: 2}},
		{Candidate: Candidate{Donor: 6, Acceptor: 3, H: 7, Slot: 5, DonorRes: 3, AcceptorRes: 2}, Order: 1},
	}
	if err := CheckClaims(hops[:1]); err != nil {
		Te.Error(err)
	}
	err := CheckClaims(hops)
	var cv *ConsistencyViolation
	if !errors.As(err, &cv) || cv.Atom != 3 {
		Te.Errorf("expected a ConsistencyViolation on atom 3, got %v", err)
	}
	if !IsCritical(err) {
		Te.Errorf("ConsistencyViolation must be critical")
	}
}
