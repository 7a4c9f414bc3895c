/*
 * rng.go, part of qhop.
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

import "math/rand/v2"

// splitmix is the SplitMix64 finalizer. It is used to derive independent
// seeds from small, correlated integers (steps, atom indexes).
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// StepSeed returns the seed for a given step.
func StepSeed(seed uint64, step int64) uint64 {
	return splitmix(seed ^ splitmix(uint64(step)))
}

// RankSeed returns a seed for the given rank, for per-rank selection.
func RankSeed(seed uint64, rank int) uint64 {
	return splitmix(seed + 0x632be59bd9b4e019*uint64(rank+1))
}

// Draw returns the uniform [0,1) number for the pair donor-acceptor
// at a step. It depends only on its arguments.
func Draw(seed uint64, step int64, donor, acceptor int) float64 {
	s := StepSeed(seed, step)
	pair := splitmix(uint64(uint32(donor))<<32 | uint64(uint32(acceptor)))
	return rand.New(rand.NewPCG(s, pair)).Float64()
}

// permutation returns a random permutation of n elements for a step.
func permutation(seed uint64, step int64, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	rng := rand.New(rand.NewPCG(StepSeed(seed, step), 0x5eed))
	rng.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}
