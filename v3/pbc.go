/*
 * pbc.go, part of qhop.
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

package v3

import "math"

// A nil or empty box means no periodic boundary conditions. Otherwise box
// holds the 3 lengths of an orthorhombic cell.
func checkBox(box []float64) bool {
	if len(box) == 0 {
		return false
	}
	if len(box) != 3 {
		panic(ErrBox)
	}
	return true
}

// MinImage returns d (a difference vector) folded to its minimum image in box.
func MinImage(d [3]float64, box []float64) [3]float64 {
	if !checkBox(box) {
		return d
	}
	for i := range d {
		if box[i] <= 0 {
			continue
		}
		d[i] -= box[i] * math.Round(d[i]/box[i])
	}
	return d
}

// Wrap returns the point p placed inside the primary cell [0,box).
func Wrap(p [3]float64, box []float64) [3]float64 {
	if !checkBox(box) {
		return p
	}
	for i := range p {
		if box[i] <= 0 {
			continue
		}
		p[i] -= box[i] * math.Floor(p[i]/box[i])
	}
	return p
}

// Dist returns the minimum-image distance between vectors i and j of F.
func (F *Matrix) Dist(i, j int, box []float64) float64 {
	return Norm(MinImage(Sub(F.Vec(j), F.Vec(i)), box))
}

// PBCSub returns the minimum-image difference vector j-i between vectors of F.
func (F *Matrix) PBCSub(i, j int, box []float64) [3]float64 {
	return MinImage(Sub(F.Vec(j), F.Vec(i)), box)
}
