/*
 * doc.go, part of qhop.
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

/*
Package qhop models proton hopping (quantum hydrogen transfer) events inside a
molecular dynamics simulation.

Every time the hop cycle runs (QHop.Do) it

	finds which titratable donor/acceptor pairs are within hopping range,
	computes a transfer probability for each candidate hop,
	selects a conflict-free, stochastically accepted subset of the candidates,
	and edits the topology (residue subtypes, bonded parameter identifiers,
	partial charges and active hydrogens) to reflect the executed hops.

The cycle is a two-stage pipeline: candidates are produced as plain data
(Candidate), selected (Select), and only then committed (Mutator.Apply).
Nothing is mutated while scanning.

The protonation variants of every titratable residue, the hopping energies
and the bonded parameter variants come from a read-only Database. DB is an
in-memory implementation, and the qdb package reads/writes it from JSON files.
The force-field topology is a Topology (the top package reads it from Gromacs
itp/top files), coordinates and velocities are v3.Matrix.

	**Components**

	Registry: the titratable atoms and residues, and their current subtype.
	RangeFinder: donor-acceptor range search (BruteForce here, a kd-tree in
	the neighbor package).
	Evaluate: hop probabilities from geometry, energetics and temperature.
	Select: the unscrambled/scrambled conflict-free selection.
	BondedIndex: which bonded entries change with the subtype of each residue.
	Mutator: applies accepted hops atomically and folds parked hydrogens.
	Comm: the agreement between parallel ranks (Serial here, rank.Group for
	in-process ranks).
*/
package qhop
