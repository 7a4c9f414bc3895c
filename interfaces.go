/*
 * interfaces.go, part of qhop.
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
	"iter"
)

// Atomer is the basic interface for a topology.
type Atomer interface {

	//Atom returns the Atom corresponding to the index i
	//of the Atom slice in the Topology. Should panic if
	//out of range.
	Atom(i int) *Atom

	Len() int
}

// Database is the read-only source of protonation variants and hopping
// parameters. Queries must not have side effects.
type Database interface {
	//ResidueType returns the titratable residue type with the given name, if any.
	ResidueType(name string) (*ResidueType, bool)

	//Transition returns the hopping parameters for a hop from a residue in the donor
	//subtype to a residue in the acceptor subtype.
	Transition(donor, acceptor string) (*Transition, bool)
}

// Neighbor is one acceptor yielded by a RangeFinder.
type Neighbor struct {
	Acceptor *Titratable
	Dist     float64

	//SelfBonded is set when the acceptor is within 3 covalent bonds
	//of the donor (including the same residue).
	SelfBonded bool
}

// RangeFinder finds the acceptors around a donor.
type RangeFinder interface {
	//Update is called once per cycle, before any call to Within.
	Update(reg *Registry, st *State) error

	//Within returns the acceptors closer than cutoff to the donor, in increasing
	//order of global index. The donor itself is never included, and acceptors
	//covalently close to the donor come flagged as SelfBonded.
	//Results must not depend on anything but the configuration given in Update.
	Within(don *Titratable, cutoff float64) iter.Seq[Neighbor]
}

// Comm is the communication layer between the ranks that hold parts of
// the system.
type Comm interface {
	Rank() int
	Size() int

	//Home returns whether the atom with the given global index is owned by this rank.
	Home(global int) bool

	//AllGather sends the local candidates of this step to every rank and returns
	//the candidates of all ranks, ordered by rank. It blocks until every rank has
	//contributed or ctx is done.
	AllGather(ctx context.Context, step int64, local []Candidate) ([][]Candidate, error)
}
