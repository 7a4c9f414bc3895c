/*
 * groio.go, part of qhop.
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

package top

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/rmera/qhop"
)

type cond struct {
	reading []bool
}

func newCond() *cond {
	return &cond{reading: []bool{true}}
}

// a function to read conditional parts of gromacs topologies
// depending on the defined flags that should be in 'defines'.
// Returns true if the line is to be read.
func (c *cond) read(line string, defines *[]string) bool {
	top := len(c.reading) - 1
	switch f := fi(line); {
	case strings.HasPrefix(line, "#ifdef"), strings.HasPrefix(line, "#ifndef"):
		in := len(f) > 1 && slices.Contains(*defines, f[1])
		if f[0] == "#ifndef" {
			in = !in
		}
		c.reading = append(c.reading, c.reading[top] && in)
		return false
	case strings.HasPrefix(line, "#else"):
		if top > 0 {
			c.reading[top] = c.reading[top-1] && !c.reading[top]
		}
		return false
	case strings.HasPrefix(line, "#endif"):
		if top > 0 {
			c.reading = c.reading[:top]
		}
		return false
	case strings.HasPrefix(line, "#define"):
		if c.reading[top] && len(f) > 1 {
			*defines = append(*defines, f[1])
		}
		return false
	}
	return c.reading[top]
}

// FF reads Gromacs itp/top files into a qhop Topology. Each [ atoms ] section
// is appended after the atoms already read, with atom and residue numbers shifted
// so they stay unique.
type FF struct {
	Top *qhop.Topology

	currentHeader string
	offset        int //atoms before the current [ atoms ] section
	resoffset     int //largest residue id before the current [ atoms ] section
	maxres        int
}

// NewFF returns an FF with an empty Topology.
func NewFF() *FF {
	return &FF{Top: qhop.NewTopology(nil)}
}

// ReadFile reads the Gromacs topology in the file fname, following #include statements
// relative to its directory.
func ReadFile(fname string, defines ...string) (*qhop.Topology, error) {
	F := NewFF()
	if err := F.fillFile(fname, true, &defines); err != nil {
		return nil, err
	}
	return F.Top, nil
}

func (F *FF) fillFile(fname string, follow bool, defines *[]string) error {
	file, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("Failed to open topology file %s: %w", fname, err)
	}
	defer file.Close()
	return F.fill(bufio.NewReader(file), filepath.Dir(fname), follow, defines)
}

// Fill will fill the receiver with data from the given StringReader which must be
// in Gromacs itp/top format. Only atoms, bonds, angles and dihedrals are read;
// dihedrals of function types 2 and 4 go to the impropers list.
// if followIncludes is true, #include statements will trigger opening and
// reading the included file(s), relative to the current directory.
func (F *FF) Fill(r StringReader, followIncludes bool, defines ...string) error {
	return F.fill(r, ".", followIncludes, &defines)
}

func (F *FF) fill(r StringReader, dir string, follow bool, defines *[]string) error {
	var err error
	var s string
	read := newCond()
	h := newTopHeader()
	for s, err = r.ReadString('\n'); err == nil || (errors.Is(err, io.EOF) && s != ""); s, err = r.ReadString('\n') {
		eof := err != nil
		s = cleanString(s)
		if s == "" || !read.read(s, defines) {
			if eof {
				break
			}
			continue
		}
		if strings.HasPrefix(s, "#include") {
			if follow {
				f := fi(s)
				fname := strings.Trim(f[len(f)-1], "\"'<>")
				if !filepath.IsAbs(fname) {
					fname = filepath.Join(dir, fname)
				}
				if err := F.fillFile(fname, follow, defines); err != nil {
					return fmt.Errorf("Failed to include file: %s. Error: %w", fname, err)
				}
			}
		} else if h.Is(s) {
			F.currentHeader = h.Which(s)
			if F.currentHeader == "atoms" {
				F.offset = F.Top.Len()
				F.resoffset = F.maxres
			}
		} else if lerr := F.line(s); lerr != nil {
			return fmt.Errorf("Couldn't read header %s. Line: %s. Error: %w", F.currentHeader, s, lerr)
		}
		if eof {
			break
		}
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return err
}

func (F *FF) line(s string) error {
	switch F.currentHeader {
	case "atoms":
		at, err := AtomFromGro(s)
		if err != nil {
			return err
		}
		if at.ID != F.Top.Len()-F.offset {
			return fmt.Errorf("atom number %d out of order", at.ID+1)
		}
		at.ID += F.offset
		at.MolID += F.resoffset
		F.maxres = max(F.maxres, at.MolID)
		F.Top.Atoms = append(F.Top.Atoms, at)
	case "bonds", "angles", "dihedrals", "impropers":
		k, ids, P, err := TermFromGro(s, F.currentHeader)
		if err != nil {
			return err
		}
		for i := range ids {
			ids[i] += F.offset
			if ids[i] < 0 || ids[i] >= F.Top.Len() {
				return fmt.Errorf("atom %d not in the topology", ids[i]+1)
			}
		}
		F.Top.AddInteraction(k, ids, P)
	}
	return nil
}

// AtomFromGro returns the atom in a line of an [ atoms ] section:
// nr type resnr residue atom cgnr charge [mass]. The ID of the atom is nr-1.
func AtomFromGro(s string) (at *qhop.Atom, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	l := fi(cleanString(s))
	if len(l) < 7 {
		return nil, fmt.Errorf("atom line with %d fields", len(l))
	}
	at = new(qhop.Atom)
	nr, err := strconv.Atoi(l[0])
	qerr(err)
	at.ID = nr - 1
	at.Type = l[1]
	at.MolID, err = strconv.Atoi(l[2])
	qerr(err)
	at.Molname = l[3]
	at.Name = l[4]
	at.Charge, err = strconv.ParseFloat(l[6], 64)
	qerr(err)
	if len(l) > 7 {
		at.Mass, err = strconv.ParseFloat(l[7], 64)
		qerr(err)
	}
	at.Symbol = symbolFromName(at.Name)
	return at, nil
}

// Force-field atom names start with the element symbol, and sometimes
// with a digit before it (1HB).
func symbolFromName(name string) string {
	name = strings.TrimLeftFunc(name, unicode.IsDigit)
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1])
}

// TermFromGro returns the kind, 0-based atom indexes and parameters of the bonded
// term in the line s, given that the string is part of the header header.
// All the numbers after the function type are taken as parameters, so terms that
// use the force field defaults get an empty parameter list.
func TermFromGro(s, header string) (k qhop.Kind, ids []int, P qhop.ParamSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	switch header {
	case "bonds":
		k = qhop.Bonds
	case "angles":
		k = qhop.Angles
	case "dihedrals":
		k = qhop.Dihedrals
	case "impropers":
		k = qhop.Impropers
	default:
		return k, nil, P, fmt.Errorf("unsupported header %s", header)
	}
	ats := qhop.KindAtoms(k)
	l := fi(cleanString(s))
	if len(l) < ats+1 {
		return k, nil, P, fmt.Errorf("%s line with %d fields", header, len(l))
	}
	ids, err = parseints(l[:ats]...)
	qerr(err)
	for i := range ids {
		ids[i]--
	}
	P.Func, err = strconv.Atoi(l[ats])
	qerr(err)
	P.Values, err = parsefloats(l[ats+1:]...)
	qerr(err)
	if k == qhop.Dihedrals && (P.Func == 2 || P.Func == 4) {
		k = qhop.Impropers
	}
	return k, ids, P, nil
}

// Write writes the atoms and the bonded terms of top, with their current parameters,
// in Gromacs itp format.
func Write(w io.StringWriter, top *qhop.Topology) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	_, err = w.WriteString("[ atoms ]\n")
	qerr(err)
	for i, A := range top.Atoms {
		_, err = w.WriteString(fmt.Sprintf("%6d %6s %5d %5s %5s %5d %9.5f %9.4f\n", i+1, A.Type, A.MolID, A.Molname, A.Name, i+1, A.Charge, A.Mass))
		qerr(err)
	}
	headers := [qhop.NKinds]string{"bonds", "angles", "dihedrals", "dihedrals"}
	for k := qhop.Kind(0); k < qhop.NKinds; k++ {
		if len(top.Bonded[k]) == 0 {
			continue
		}
		_, err = w.WriteString(fmt.Sprintf("\n[ %s ]\n", headers[k]))
		qerr(err)
		for _, in := range top.Bonded[k] {
			_, err = w.WriteString(termToGro(in, top.Params[in.Param]))
			qerr(err)
		}
	}
	return nil
}

func termToGro(in qhop.Interaction, P qhop.ParamSet) string {
	ret := make([]string, 0, len(in.Atoms)+len(P.Values)+1)
	for _, v := range in.Atoms {
		ret = append(ret, fmt.Sprintf("%5d", v+1))
	}
	ret = append(ret, fmt.Sprintf("%2d", in.Func))
	for _, v := range P.Values {
		ret = append(ret, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(ret, " ") + "\n"
}
