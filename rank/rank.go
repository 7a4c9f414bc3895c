/*
 * rank.go, part of qhop.
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

package rank

import (
	"context"
	"fmt"

	"github.com/rmera/qhop"
)

type message struct {
	from  int
	step  int64
	cands []qhop.Candidate
}

// Group is a set of ranks that communicate through channels.
type Group struct {
	size   int
	owner  func(global int) int
	inbox  []chan message
	member []*Member
}

// NewGroup returns a group of size ranks. owner maps every global atom index
// to the rank that owns it.
func NewGroup(size int, owner func(global int) int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("rank: NewGroup: size must be positive, got %d", size)
	}
	if owner == nil {
		return nil, fmt.Errorf("rank: NewGroup: nil owner function")
	}
	G := &Group{size: size, owner: owner}
	G.inbox = make([]chan message, size)
	G.member = make([]*Member, size)
	for i := range G.inbox {
		//a rank can send the messages of at most two steps before the
		//receiver reads any of them.
		G.inbox[i] = make(chan message, 2*size)
		G.member[i] = &Member{g: G, rank: i, pending: make(map[int64][]message)}
	}
	return G, nil
}

// Size returns the number of ranks in the group.
func (G *Group) Size() int { return G.size }

// Rank returns the Comm of the rank i. Each Member must be used by only
// one goroutine.
func (G *Group) Rank(i int) *Member {
	return G.member[i]
}

// Member is the qhop.Comm of one rank of a Group.
type Member struct {
	g       *Group
	rank    int
	pending map[int64][]message //messages that arrived for later steps
}

func (M *Member) Rank() int { return M.rank }
func (M *Member) Size() int { return M.g.size }

// Home returns true if the atom with the given global index is owned by
// this rank.
func (M *Member) Home(global int) bool { return M.g.owner(global) == M.rank }

// AllGather sends local to all other ranks and collects their candidates for
// the same step. The result has one slice per rank, in rank order.
func (M *Member) AllGather(ctx context.Context, step int64, local []qhop.Candidate) ([][]qhop.Candidate, error) {
	out := message{from: M.rank, step: step, cands: local}
	for i, ch := range M.g.inbox {
		if i == M.rank {
			continue
		}
		select {
		case ch <- out:
		case <-ctx.Done():
			return nil, fmt.Errorf("rank %d: AllGather step %d: %w", M.rank, step, ctx.Err())
		}
	}
	ret := make([][]qhop.Candidate, M.g.size)
	ret[M.rank] = local
	got := 1
	for _, m := range M.pending[step] {
		ret[m.from] = m.cands
		got++
	}
	delete(M.pending, step)
	for got < M.g.size {
		select {
		case m := <-M.g.inbox[M.rank]:
			switch {
			case m.step == step:
				ret[m.from] = m.cands
				got++
			case m.step > step:
				M.pending[m.step] = append(M.pending[m.step], m)
			default:
				return nil, fmt.Errorf("rank %d: AllGather step %d: message from rank %d for past step %d", M.rank, step, m.from, m.step)
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("rank %d: AllGather step %d: %w", M.rank, step, ctx.Err())
		}
	}
	return ret, nil
}

// ByResidue returns an owner function that splits the residues of top, in
// order, into size blocks with about the same number of atoms. A residue is
// never split between ranks. A size under 1 is taken as 1.
func ByResidue(top *qhop.Topology, size int) func(global int) int {
	size = max(size, 1)
	owner := make([]int, len(top.Atoms))
	per := (len(top.Atoms) + size - 1) / size
	r, n := 0, 0
	for i, a := range top.Atoms {
		if i > 0 && a.MolID != top.Atoms[i-1].MolID && n >= per && r < size-1 {
			r++
			n = 0
		}
		owner[i] = r
		n++
	}
	return func(global int) int {
		if global < 0 || global >= len(owner) {
			return -1
		}
		return owner[global]
	}
}
