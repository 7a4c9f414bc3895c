/*
 * kdtree.go, part of qhop.
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

// Package neighbor implements a qhop.RangeFinder over a k-d tree of the
// acceptor positions, for rectangular periodic boxes or no periodicity.
package neighbor

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/rmera/qhop"
	v3 "github.com/rmera/qhop/v3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// slack is added to the search radius of the tree. The final distances
// are recomputed with the minimum image convention.
const slack = 1e-9

type point struct {
	x    [3]float64
	site *qhop.Titratable
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(point).x[d]
}

func (p point) Dims() int { return 3 }

// Distance returns the squared distance between p and c.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	d := v3.Sub(p.x, q.x)
	return v3.Dot(d, d)
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot uses the median of medians, which doesn't depend on a global random source.
func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].x[p.dim] < p.points[j].x[p.dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// KDTree is a qhop.RangeFinder. The tree holds the atoms that can accept protons
// and is rebuilt in every call to Update.
type KDTree struct {
	tree *kdtree.Tree
	st   *qhop.State
	box  []float64
}

// New returns an empty KDTree.
func New() *KDTree {
	return new(KDTree)
}

// Update builds the tree for the configuration in st.
func (K *KDTree) Update(reg *qhop.Registry, st *qhop.State) error {
	K.st = st
	K.box = nil
	if len(st.Box) > 0 {
		K.box = st.Box
	}
	pts := make(points, 0, len(reg.Sites))
	for _, s := range reg.Sites {
		if !s.Role().CanAccept() {
			continue
		}
		pts = append(pts, point{x: v3.Wrap(st.X.Vec(s.Local), K.box), site: s})
	}
	K.tree = kdtree.New(pts, false)
	return nil
}

// images returns the shifts of x to its periodic images that can be closer than
// cutoff to an atom in the box. The zero shift is always the first one.
func (K *KDTree) images(x [3]float64, cutoff float64) [][3]float64 {
	ret := [][3]float64{{}}
	if K.box == nil {
		return ret
	}
	for i := 0; i < 3; i++ {
		l := K.box[i]
		var sh []float64
		if x[i] < cutoff {
			sh = append(sh, l)
		}
		if x[i] > l-cutoff {
			sh = append(sh, -l)
		}
		n := len(ret)
		for _, s := range sh {
			for _, r := range ret[:n] {
				r[i] += s
				ret = append(ret, r)
			}
		}
	}
	return ret
}

// Within returns the acceptors within cutoff of don, sorted by global index.
func (K *KDTree) Within(don *qhop.Titratable, cutoff float64) iter.Seq[qhop.Neighbor] {
	return func(yield func(qhop.Neighbor) bool) {
		if K.tree == nil {
			return
		}
		x := v3.Wrap(K.st.X.Vec(don.Local), K.box)
		r2 := (cutoff + slack) * (cutoff + slack)
		found := make(map[*qhop.Titratable]bool)
		for _, sh := range K.images(x, cutoff) {
			keep := kdtree.NewDistKeeper(r2)
			K.tree.NearestSet(keep, point{x: v3.Add(x, sh)})
			for _, c := range keep.Heap {
				if c.Comparable == nil {
					continue
				}
				found[c.Comparable.(point).site] = true
			}
		}
		ret := make([]qhop.Neighbor, 0, len(found))
		for s := range found {
			if s == don {
				continue
			}
			d := K.st.X.Dist(don.Local, s.Local, K.box)
			if d > cutoff || math.IsNaN(d) {
				continue
			}
			ret = append(ret, qhop.Neighbor{Acceptor: s, Dist: d, SelfBonded: don.Near(s.Index)})
		}
		slices.SortFunc(ret, func(a, b qhop.Neighbor) int { return cmp.Compare(a.Acceptor.Index, b.Acceptor.Index) })
		for _, n := range ret {
			if !yield(n) {
				return
			}
		}
	}
}
