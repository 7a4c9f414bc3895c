/*
 * qdb.go, part of qhop.
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

package qdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/qhop"
	"gonum.org/v1/gonum/floats/scalar"
)

// ChargeTol is the largest total charge change accepted for a hop.
const ChargeTol = 1e-6

// Read reads a JSON database from r and validates it.
func Read(r io.Reader) (*qhop.DB, error) {
	db := new(qhop.DB)
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(db); err != nil {
		return nil, fmt.Errorf("qdb.Read: %w", err)
	}
	if err := Validate(db); err != nil {
		return nil, fmt.Errorf("qdb.Read: %w", err)
	}
	return db, nil
}

// Write writes db to w as indented JSON.
func Write(w io.Writer, db *qhop.DB) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(db); err != nil {
		return fmt.Errorf("qdb.Write: %w", err)
	}
	return nil
}

func compressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zst")
}

// Load reads and validates the database in the file name. Files
// ending in .zst are decompressed with zstd.
func Load(name string) (*qhop.DB, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("qdb.Load: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if compressed(name) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("qdb.Load: %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}
	db, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return db, nil
}

// Save writes db to the file name, compressed with zstd if the name ends in .zst.
func Save(name string, db *qhop.DB) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("qdb.Save: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("qdb.Save: %w", cerr)
		}
	}()
	if !compressed(name) {
		return Write(f, db)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("qdb.Save: %w", err)
	}
	if err := Write(zw, db); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("qdb.Save: %w", err)
	}
	return nil
}

// LoadConfig reads hop options from a JSON file.
func LoadConfig(name string) (*qhop.Options, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("qdb.LoadConfig: %w", err)
	}
	defer f.Close()
	return qhop.ReadConfig(f)
}

// Validate checks that db can be used for hopping: names are unique, subtypes only
// use the hydrogen slots of their residue type, all the subtypes of a residue type
// give charges to the same atoms, bonded variants and transitions refer to existing
// subtypes, transition parameters are sane and every hop the transitions allow
// conserves the total charge. All the problems found are returned together.
func Validate(db *qhop.DB) error {
	var errs []error
	subs := make(map[string]*qhop.ResidueType)
	resnames := make(map[string]bool)
	for _, r := range db.Residues {
		if resnames[r.Name] {
			errs = append(errs, fmt.Errorf("residue type %s defined twice", r.Name))
		}
		resnames[r.Name] = true
		errs = append(errs, validateResidue(r)...)
		for _, s := range r.Subtypes {
			if subs[s.Name] != nil {
				errs = append(errs, fmt.Errorf("subtype %s defined twice", s.Name))
			}
			subs[s.Name] = r
		}
	}
	pairs := make(map[[2]string]bool)
	for _, t := range db.Transitions {
		if err := t.Check(); err != nil {
			errs = append(errs, err)
		}
		if pairs[[2]string{t.Donor, t.Acceptor}] {
			errs = append(errs, fmt.Errorf("transition %s->%s defined twice", t.Donor, t.Acceptor))
		}
		pairs[[2]string{t.Donor, t.Acceptor}] = true
		dr, ar := subs[t.Donor], subs[t.Acceptor]
		if dr == nil || ar == nil {
			errs = append(errs, fmt.Errorf("transition %s->%s: unknown subtype", t.Donor, t.Acceptor))
			continue
		}
		errs = append(errs, validateHops(t, dr, ar)...)
	}
	return errors.Join(errs...)
}

func validateResidue(r *qhop.ResidueType) []error {
	var errs []error
	slots := make(map[string]bool)
	for _, s := range r.Sites {
		for _, h := range s.Hydrogens {
			if slots[h] {
				errs = append(errs, fmt.Errorf("%s: hydrogen %s in two sites", r.Name, h))
			}
			slots[h] = true
		}
	}
	var atoms []string
	for i, s := range r.Subtypes {
		for _, p := range s.Protons {
			if !slots[p] {
				errs = append(errs, fmt.Errorf("%s: subtype %s has a proton %s that is not a hydrogen slot", r.Name, s.Name, p))
			}
		}
		names := make([]string, 0, len(s.Charges))
		for n := range s.Charges {
			names = append(names, n)
		}
		slices.Sort(names)
		if i == 0 {
			atoms = names
		} else if !slices.Equal(names, atoms) {
			errs = append(errs, fmt.Errorf("%s: subtype %s gives charges to %v, %s to %v", r.Name, s.Name, names, r.Subtypes[0].Name, atoms))
		}
	}
	for _, b := range r.Bonded {
		if len(b.Atoms) != qhop.KindAtoms(b.Kind) {
			errs = append(errs, fmt.Errorf("%s: %s variant with %d atoms", r.Name, b.Kind, len(b.Atoms)))
		}
		for s := range b.Params {
			if r.Subtype(s) < 0 {
				errs = append(errs, fmt.Errorf("%s: %s variant %v for unknown subtype %s", r.Name, b.Kind, b.Atoms, s))
			}
		}
	}
	return errs
}

func without(p []string, h string) []string {
	return slices.DeleteFunc(slices.Clone(p), func(s string) bool { return s == h })
}

// validateHops checks that every hop from a donor in t.Donor to an acceptor in
// t.Acceptor, with any proton and any free slot, conserves the total charge. Hops
// for which no final subtype exists are never executed, so they are not checked.
func validateHops(t *qhop.Transition, dr, ar *qhop.ResidueType) []error {
	var errs []error
	ds := dr.Subtypes[dr.Subtype(t.Donor)]
	as := ar.Subtypes[ar.Subtype(t.Acceptor)]
	var free []string
	for _, s := range ar.Sites {
		for _, h := range s.Hydrogens {
			if !as.HasProton(h) {
				free = append(free, h)
			}
		}
	}
	for _, h := range ds.Protons {
		for _, f := range free {
			da := dr.SubtypeWith(without(ds.Protons, h))
			aa := ar.SubtypeWith(append(slices.Clone(as.Protons), f))
			if da >= 0 && aa >= 0 {
				before := ds.Charge() + as.Charge()
				after := dr.Subtypes[da].Charge() + ar.Subtypes[aa].Charge()
				if !scalar.EqualWithinAbs(before, after, ChargeTol) {
					errs = append(errs, fmt.Errorf("transition %s->%s (%s to %s) changes the charge from %g to %g", t.Donor, t.Acceptor, h, f, before, after))
				}
			}
			//the same residue type can also hop within one residue.
			if dr == ar && ds == as {
				ia := dr.SubtypeWith(append(without(ds.Protons, h), f))
				if ia >= 0 && !scalar.EqualWithinAbs(ds.Charge(), dr.Subtypes[ia].Charge(), ChargeTol) {
					errs = append(errs, fmt.Errorf("transition %s->%s (%s to %s, same residue) changes the charge", t.Donor, t.Acceptor, h, f))
				}
			}
		}
	}
	return errs
}
