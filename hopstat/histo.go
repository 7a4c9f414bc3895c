/*
 * histo.go, part of qhop.
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

package hopstat

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Histo is a histogram with fixed dividers. Values outside the range of the
// dividers are counted in Total but not in any bin.
type Histo struct {
	normalized bool
	total      int
	dividers   []float64
	histo      []float64
}

// NewHisto returns an empty histogram with the given dividers, which must be
// at least 2 and sorted in increasing order.
func NewHisto(dividers []float64) (*Histo, error) {
	if len(dividers) < 2 {
		return nil, fmt.Errorf("hopstat: NewHisto: at least 2 dividers needed, got %d", len(dividers))
	}
	if floats.HasNaN(dividers) {
		return nil, fmt.Errorf("hopstat: NewHisto: NaN divider")
	}
	for i := 1; i < len(dividers); i++ {
		if dividers[i] <= dividers[i-1] {
			return nil, fmt.Errorf("hopstat: NewHisto: dividers not strictly increasing at %d", i)
		}
	}
	H := new(Histo)
	H.dividers = make([]float64, len(dividers))
	copy(H.dividers, dividers)
	H.histo = make([]float64, len(dividers)-1)
	return H, nil
}

// ProbHisto returns a histogram with n bins of the same width covering [0,1].
// A probability of exactly 1 goes to the last bin.
func ProbHisto(n int) *Histo {
	if n < 1 {
		n = 1
	}
	d := make([]float64, n+1)
	floats.Span(d, 0, 1)
	d[n] = math.Nextafter(1, 2)
	H, _ := NewHisto(d)
	return H
}

// Add adds the given data points to the histogram.
func (H *Histo) Add(point ...float64) {
	norma := H.normalized
	if norma {
		H.UnNormalize()
	}
	for _, v := range point {
		if i := floats.Within(H.dividers, v); i >= 0 {
			H.histo[i]++
		}
	}
	H.total += len(point)
	if norma {
		H.Normalize()
	}
}

// Total returns the number of points added to the histogram.
func (H *Histo) Total() int { return H.total }

// Normalized returns true if the histogram is normalized.
func (H *Histo) Normalized() bool { return H.normalized }

// Normalize divides every bin by the number of points.
func (H *Histo) Normalize() { H.normaunnorma(true) }

// UnNormalize reverts Normalize.
func (H *Histo) UnNormalize() { H.normaunnorma(false) }

func (H *Histo) normaunnorma(normalize bool) {
	if H.total <= 0 || H.normalized == normalize {
		return
	}
	n := float64(H.total)
	if normalize {
		n = 1 / n
	}
	H.normalized = normalize
	floats.Scale(n, H.histo)
}

// View returns the bins of the histogram, not a copy.
func (H *Histo) View() []float64 { return H.histo }

// Dividers returns a copy of the dividers.
func (H *Histo) Dividers() []float64 {
	ret := make([]float64, len(H.dividers))
	copy(ret, H.dividers)
	return ret
}

func (H *Histo) String() string {
	d := make([]string, 0, len(H.histo))
	h := make([]string, 0, len(H.histo))
	for i, v := range H.histo {
		d = append(d, fmt.Sprintf("%4.2f-%4.2f", H.dividers[i], H.dividers[i+1]))
		h = append(h, fmt.Sprintf("%9.3f", v))
	}
	return fmt.Sprintf("Normalized: %v, TotalData: %d\n%s\n%s", H.normalized, H.total, strings.Join(d, " "), strings.Join(h, " "))
}

type jsonHisto struct {
	Normalized bool      `json:"normalized"`
	Total      int       `json:"total"`
	Dividers   []float64 `json:"dividers"`
	Histo      []float64 `json:"histo"`
}

func (H *Histo) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonHisto{Normalized: H.normalized, Total: H.total, Dividers: H.dividers, Histo: H.histo})
}

func (H *Histo) UnmarshalJSON(b []byte) error {
	var a jsonHisto
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	if len(a.Dividers) != len(a.Histo)+1 {
		return fmt.Errorf("hopstat: Histo: %d dividers for %d bins", len(a.Dividers), len(a.Histo))
	}
	H.normalized, H.total, H.dividers, H.histo = a.Normalized, a.Total, a.Dividers, a.Histo
	return nil
}
