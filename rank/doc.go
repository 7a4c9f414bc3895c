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

// Package rank provides a qhop.Comm for several ranks running in the same
// process, one goroutine each. Every rank holds a full copy of the system
// and owns the atoms an owner function assigns to it.
//
// It is used to run and test the multi-rank agreement protocol without an
// MPI library: messages are exchanged over channels and tagged with the MD
// step, so a rank can get ahead of the others by at most one hopping cycle.
package rank
