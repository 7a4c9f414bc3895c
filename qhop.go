/*
 * qhop.go, part of qhop.
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
	"context"
	"errors"
)

// QHop runs the hopping cycle on the part of the system held by one rank.
type QHop struct {
	Reg   *Registry
	Index *BondedIndex
	Mut   *Mutator

	db     Database
	finder RangeFinder
	comm   Comm
	opts   *Options
}

// Report describes what happened in one call to Do.
type Report struct {
	Step       int64       `json:"step"`
	Skipped    bool        `json:"skipped,omitempty"`
	Candidates []Candidate `json:"candidates"` //all the candidates considered by the selection
	Selected   []Hop       `json:"selected"`
	Applied    []Hop       `json:"applied"`
	Dropped    []Hop       `json:"dropped,omitempty"` //selected but not executable
	Deferred   int         `json:"deferred,omitempty"` //candidates left out by a PerRank policy
	Remote     int         `json:"remote,omitempty"`   //hops on atoms this rank doesn't hold
	Degenerate int         `json:"degenerate,omitempty"`
}

// New sets up the hopping for the topology and metadata of a rank. The nil
// values of meta, finder, comm and opts are replaced by a new Metadata, a
// BruteForce finder, Serial and DefaultOptions, respectively. occupancy
// maps the global index of every hydrogen slot that exists at the start to true.
func New(top *Topology, meta *Metadata, db Database, finder RangeFinder, comm Comm, occupancy map[int]bool, opts *Options) (*QHop, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if finder == nil {
		finder = new(BruteForce)
	}
	if comm == nil {
		comm = Serial{}
	}
	reg, err := NewRegistry(top, db, occupancy, meta)
	if err != nil {
		return nil, errDecorate(err, "New")
	}
	idx, err := BuildIndex(top, reg)
	if err != nil {
		return nil, errDecorate(err, "New")
	}
	Q := &QHop{
		Reg:    reg,
		Index:  idx,
		Mut:    NewMutator(reg, idx, comm.Home, opts),
		db:     db,
		finder: finder,
		comm:   comm,
		opts:   opts,
	}
	opts.Log().Infof("rank %d: %d titratable atoms in %d residues, %d subtype-dependent bonded terms",
		comm.Rank(), len(reg.Sites), len(reg.Residues), idx.Len())
	return Q, nil
}

// Candidates evaluates every possible hop from the donors owned by this rank.
// Candidates with degenerate geometries are logged and skipped, the number of them
// is returned.
func (Q *QHop) Candidates(st *State) ([]Candidate, int, error) {
	if err := Q.finder.Update(Q.Reg, st); err != nil {
		return nil, 0, errDecorate(err, "Candidates")
	}
	var ret []Candidate
	degenerate := 0
	cutoff, intra, T := Q.opts.Cutoff(), Q.opts.Intramolecular(), Q.opts.Temperature()
	for _, don := range Q.Reg.Sites {
		if !Q.comm.Home(don.Index) || !Q.Reg.Meta.Donor[don.Local] {
			continue
		}
		for nb := range Q.finder.Within(don, cutoff) {
			if nb.SelfBonded && !intra {
				continue
			}
			if !Q.Reg.Meta.Acceptor[nb.Acceptor.Local] {
				continue
			}
			c, err := Evaluate(Q.Reg, don, nb.Acceptor, st, Q.db, T)
			var gerr *GeometryDegenerateError
			if errors.As(err, &gerr) {
				Q.opts.Log().Warnf("step %d: %v", st.Step, err)
				degenerate++
				continue
			} else if err != nil {
				return nil, degenerate, errDecorate(err, "Candidates")
			}
			if c != nil {
				ret = append(ret, *c)
			}
		}
	}
	return ret, degenerate, nil
}

// Do runs one hopping cycle on st, if st.Step is a multiple of Nst: the candidates
// are evaluated, the ranks agree on the hops to execute, and these are applied.
// Hops that can't be applied are logged and dropped. A returned error means that
// the simulation must stop.
func (Q *QHop) Do(ctx context.Context, st *State) (*Report, error) {
	R := &Report{Step: st.Step}
	if st.Step%Q.opts.Nst() != 0 {
		R.Skipped = true
		return R, nil
	}
	local, degenerate, err := Q.Candidates(st)
	if err != nil {
		return nil, errDecorate(err, "Do")
	}
	R.Degenerate = degenerate
	seed := Q.opts.Seed()
	switch Q.opts.Policy() {
	case PerRank:
		for _, c := range local {
			if Q.owned(&c) {
				R.Candidates = append(R.Candidates, c)
			} else {
				R.Deferred++
			}
		}
		seed = RankSeed(seed, Q.comm.Rank())
	default:
		all, err := Q.comm.AllGather(ctx, st.Step, local)
		if err != nil {
			return nil, errDecorate(err, "Do")
		}
		for _, v := range all {
			R.Candidates = append(R.Candidates, v...)
		}
	}
	R.Selected = Select(R.Candidates, seed, st.Step, Q.opts.Mode())
	if err := CheckClaims(R.Selected); err != nil {
		return nil, errDecorate(err, "Do")
	}
	for _, h := range R.Selected {
		if Q.Reg.Site(h.Donor) == nil && Q.Reg.Site(h.Acceptor) == nil {
			R.Remote++
			continue
		}
		err := Q.Mut.Apply(&h.Candidate, st)
		var uerr *UnsupportedTransitionError
		if errors.As(err, &uerr) {
			Q.opts.Log().Warnf("step %d: hop %v dropped: %v", st.Step, &h.Candidate, err)
			R.Dropped = append(R.Dropped, h)
			continue
		} else if err != nil {
			return nil, errDecorate(err, "Do")
		}
		R.Applied = append(R.Applied, h)
	}
	Q.Mut.FoldInactive(st)
	Q.opts.Log().Debugf("step %d: %d candidates, %d selected, %d applied", st.Step, len(R.Candidates), len(R.Selected), len(R.Applied))
	return R, nil
}

// owned returns true if all the atoms of c are home.
func (Q *QHop) owned(c *Candidate) bool {
	for _, a := range [...]int{c.Donor, c.Acceptor, c.H, c.Slot} {
		if !Q.comm.Home(a) {
			return false
		}
	}
	return true
}
