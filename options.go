/*
 * options.go, part of qhop.
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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Mode is the policy used to select hops among the candidates (the "qhopmode").
type Mode int

const (
	//Unscrambled processes candidates ordered by donor, then acceptor, global index.
	Unscrambled Mode = iota
	//Scrambled processes candidates in a random order derived from the step.
	Scrambled
	//Single is Unscrambled, but accepts at most one hop per cycle.
	Single
)

var modeNames = []string{"unscrambled", "scrambled", "single"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, v := range modeNames {
		if v == s {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown qhop mode %q", s)
}

// Policy decides how the ranks agree on the hops of a step.
type Policy int

const (
	//Global gathers all candidates on every rank, which then run the same selection.
	//The result doesn't depend on the decomposition.
	Global Policy = iota
	//PerRank selects independently on each rank, with a seed derived from the rank.
	//Candidates with an atom that the rank doesn't own are deferred.
	PerRank
)

var policyNames = []string{"global", "per-rank"}

func (p Policy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("Policy(%d)", int(p))
	}
	return policyNames[p]
}

func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Policy) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, v := range policyNames {
		if v == s {
			*p = Policy(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rank policy %q", s)
}

// Options for the hop cycle. Each method returns the current value and sets a
// new one if a valid one is given. A zero Options runs the cycle at every step
// without logging, and has zero temperature, cutoff and charge tolerance;
// DefaultOptions gives the usual values.
type Options struct {
	mode           Mode
	policy         Policy
	temperature    float64
	cutoff         float64
	nst            int64
	seed           uint64
	intramolecular bool
	chargetol      float64
	log            Logger
}

// DefaultOptions returns an Options with the default values.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.mode = Unscrambled
	ret.policy = Global
	ret.temperature = 300
	ret.cutoff = 0.35
	ret.nst = 1
	ret.seed = 1993
	ret.chargetol = 1e-6
	ret.log = NoOpLogger{}
	return ret
}

// Mode returns the hop selection mode and sets it, if given.
func (o *Options) Mode(mode ...Mode) Mode {
	ret := o.mode
	if len(mode) > 0 && mode[0] >= Unscrambled && mode[0] <= Single {
		o.mode = mode[0]
	}
	return ret
}

// Policy returns the cross-rank policy and sets it, if given.
func (o *Options) Policy(p ...Policy) Policy {
	ret := o.policy
	if len(p) > 0 && p[0] >= Global && p[0] <= PerRank {
		o.policy = p[0]
	}
	return ret
}

// Temperature returns the temperature (K) for the Boltzmann factor of the hops,
// and sets it, if a non-negative value is given.
func (o *Options) Temperature(T ...float64) float64 {
	ret := o.temperature
	if len(T) > 0 && T[0] >= 0 {
		o.temperature = T[0]
	}
	return ret
}

// Cutoff returns the donor-acceptor search radius (nm) and sets it, if a
// positive value is given.
func (o *Options) Cutoff(c ...float64) float64 {
	ret := o.cutoff
	if len(c) > 0 && c[0] > 0 {
		o.cutoff = c[0]
	}
	return ret
}

// Nst returns every how many steps the cycle runs, and sets it, if a positive value is given.
// An unset value is taken as 1.
func (o *Options) Nst(n ...int64) int64 {
	ret := max(o.nst, 1)
	if len(n) > 0 && n[0] > 0 {
		o.nst = n[0]
	}
	return ret
}

// Seed returns the random seed and sets it, if given.
func (o *Options) Seed(s ...uint64) uint64 {
	ret := o.seed
	if len(s) > 0 {
		o.seed = s[0]
	}
	return ret
}

// Intramolecular returns whether hops between covalently close atoms
// (including within one residue) are allowed, and sets it, if given.
func (o *Options) Intramolecular(b ...bool) bool {
	ret := o.intramolecular
	if len(b) > 0 {
		o.intramolecular = b[0]
	}
	return ret
}

// ChargeTol returns the tolerance for total charge conservation and sets it, if
// a positive value is given.
func (o *Options) ChargeTol(t ...float64) float64 {
	ret := o.chargetol
	if len(t) > 0 && t[0] > 0 {
		o.chargetol = t[0]
	}
	return ret
}

// Log returns the logger and sets it, if a non-nil one is given.
// An unset logger is taken as a NoOpLogger.
func (o *Options) Log(l ...Logger) Logger {
	var ret Logger = NoOpLogger{}
	if o.log != nil {
		ret = o.log
	}
	if len(l) > 0 && l[0] != nil {
		o.log = l[0]
	}
	return ret
}

// Config is the serializable form of Options. Zero values keep the defaults.
type Config struct {
	Mode           Mode     `json:"mode"`
	Policy         Policy   `json:"policy"`
	Temperature    *float64 `json:"temperature,omitempty"` //nil keeps the default, 0 K is valid
	Cutoff         float64  `json:"cutoff,omitempty"`
	Nst            int64    `json:"nst,omitempty"`
	Seed           *uint64  `json:"seed,omitempty"`
	Intramolecular bool     `json:"intramolecular,omitempty"`
	ChargeTol      float64  `json:"charge_tolerance,omitempty"`
}

// Options returns a new Options with the values of C over the defaults.
func (C *Config) Options() *Options {
	o := DefaultOptions()
	o.Mode(C.Mode)
	o.Policy(C.Policy)
	if C.Temperature != nil {
		o.Temperature(*C.Temperature)
	}
	o.Cutoff(C.Cutoff)
	o.Nst(C.Nst)
	if C.Seed != nil {
		o.Seed(*C.Seed)
	}
	o.Intramolecular(C.Intramolecular)
	o.ChargeTol(C.ChargeTol)
	return o
}

// ReadConfig reads a JSON Config from r and returns the corresponding Options.
func ReadConfig(r io.Reader) (*Options, error) {
	C := new(Config)
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(C); err != nil {
		return nil, fmt.Errorf("ReadConfig: %w", err)
	}
	return C.Options(), nil
}
