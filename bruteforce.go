/*
 * bruteforce.go, part of qhop.
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

import "iter"

// BruteForce is a RangeFinder that checks every titratable atom. It is
// meant for small systems and for testing other finders.
type BruteForce struct {
	reg *Registry
	st  *State
}

func (B *BruteForce) Update(reg *Registry, st *State) error {
	B.reg = reg
	B.st = st
	return nil
}

func (B *BruteForce) Within(don *Titratable, cutoff float64) iter.Seq[Neighbor] {
	return func(yield func(Neighbor) bool) {
		for _, acc := range B.reg.Sites {
			if acc == don || !acc.Role().CanAccept() {
				continue
			}
			d := B.st.X.Dist(don.Local, acc.Local, B.st.Box)
			if d > cutoff {
				continue
			}
			if !yield(Neighbor{Acceptor: acc, Dist: d, SelfBonded: don.Near(acc.Index)}) {
				return
			}
		}
	}
}
