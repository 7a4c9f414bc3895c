/*
 * errors.go, part of qhop.
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
	"fmt"
	"strings"
)

// Error is the interface for errors that all packages in this library implement.
// The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string
	Critical() bool
}

// deco is the decoration slice shared by all the error types.
type deco []string

func (d *deco) Decorate(dec string) []string {
	if dec == "" {
		return *d
	}
	*d = append(*d, dec)
	return *d
}

func (d deco) suffix() string {
	if len(d) == 0 {
		return ""
	}
	return " [" + strings.Join(d, " < ") + "]"
}

// ConfigurationError is returned during initialization when the topology and the
// database don't agree. It aborts the run.
type ConfigurationError struct {
	Atom    int //global index, -1 if not atom-specific
	Residue int
	Msg     string
	deco
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("qhop: configuration error (atom %d, residue %d): %s%s", err.Atom, err.Residue, err.Msg, err.suffix())
}

func (err *ConfigurationError) Critical() bool { return true }

// UnsupportedTransitionError means that the parameters needed to change a residue
// from one subtype to another are missing. The hop is dropped.
type UnsupportedTransitionError struct {
	Residue  int
	From, To string
	Msg      string
	deco
}

func (err *UnsupportedTransitionError) Error() string {
	return fmt.Sprintf("qhop: unsupported transition %s->%s in residue %d: %s%s", err.From, err.To, err.Residue, err.Msg, err.suffix())
}

func (err *UnsupportedTransitionError) Critical() bool { return false }

// GeometryDegenerateError means that the donor/acceptor geometry doesn't define
// a distance or an angle. The candidate is discarded.
type GeometryDegenerateError struct {
	Donor, Acceptor int
	Msg             string
	deco
}

func (err *GeometryDegenerateError) Error() string {
	return fmt.Sprintf("qhop: degenerate geometry for donor %d acceptor %d: %s%s", err.Donor, err.Acceptor, err.Msg, err.suffix())
}

func (err *GeometryDegenerateError) Critical() bool { return false }

// ConsistencyViolation means that an invariant that the hop selection guarantees was
// broken. It is a programming error and the run must not go on.
type ConsistencyViolation struct {
	Atom int
	Msg  string
	deco
}

func (err *ConsistencyViolation) Error() string {
	return fmt.Sprintf("qhop: consistency violation (atom %d): %s%s", err.Atom, err.Msg, err.suffix())
}

func (err *ConsistencyViolation) Critical() bool { return true }

var (
	_ Error = &ConfigurationError{}
	_ Error = &UnsupportedTransitionError{}
	_ Error = &GeometryDegenerateError{}
	_ Error = &ConsistencyViolation{}
)

// errDecorate decorates err with the caller's name if err is a qhop Error, and
// wraps it otherwise.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
		return err
	}
	return fmt.Errorf("%s: %w", caller, err)
}

// IsCritical returns true if err must stop the simulation.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		return e.Critical()
	}
	return true
}
