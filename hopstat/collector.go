/*
 * collector.go, part of qhop.
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
	"fmt"
	"math"

	"github.com/rmera/qhop"
	"gonum.org/v1/gonum/stat"
)

// Step holds the counts of one hopping cycle.
type Step struct {
	Step       int64 `json:"step"`
	Candidates int   `json:"candidates"`
	Selected   int   `json:"selected"`
	Applied    int   `json:"applied"`
	Dropped    int   `json:"dropped"`
	Deferred   int   `json:"deferred"`
	Degenerate int   `json:"degenerate"`
}

// Summary are the totals and averages over all the cycles collected.
type Summary struct {
	Cycles     int `json:"cycles"`
	Candidates int `json:"candidates"`
	Selected   int `json:"selected"`
	Applied    int `json:"applied"`
	Dropped    int `json:"dropped"`
	Deferred   int `json:"deferred"`
	Degenerate int `json:"degenerate"`

	//probabilities of all the candidates, and of the applied hops.
	MeanP        float64 `json:"mean_p"`
	StdP         float64 `json:"std_p"`
	MeanAppliedP float64 `json:"mean_applied_p"`

	HopsPerCycle float64 `json:"hops_per_cycle"`
	StdHops      float64 `json:"std_hops"`
}

func (S Summary) String() string {
	return fmt.Sprintf("%d cycles: %d candidates (p=%.3f±%.3f), %d selected, %d applied (p=%.3f, %.2f±%.2f per cycle), %d dropped, %d deferred, %d degenerate",
		S.Cycles, S.Candidates, S.MeanP, S.StdP, S.Selected, S.Applied, S.MeanAppliedP, S.HopsPerCycle, S.StdHops, S.Dropped, S.Deferred, S.Degenerate)
}

// Collector accumulates the reports of the hopping cycles. Skipped reports
// are ignored. A Collector is not safe for concurrent use.
type Collector struct {
	steps   []Step
	probs   []float64
	applied []float64
	histo   *Histo
}

// NewCollector returns an empty Collector with a probability histogram of
// the given number of bins.
func NewCollector(bins int) *Collector {
	return &Collector{histo: ProbHisto(bins)}
}

// Add collects the report R.
func (C *Collector) Add(R *qhop.Report) {
	if R == nil || R.Skipped {
		return
	}
	C.steps = append(C.steps, Step{
		Step:       R.Step,
		Candidates: len(R.Candidates),
		Selected:   len(R.Selected),
		Applied:    len(R.Applied),
		Dropped:    len(R.Dropped),
		Deferred:   R.Deferred,
		Degenerate: R.Degenerate,
	})
	for _, c := range R.Candidates {
		C.probs = append(C.probs, c.Prob)
		C.histo.Add(c.Prob)
	}
	for _, h := range R.Applied {
		C.applied = append(C.applied, h.Prob)
	}
}

// Steps returns the counts of every cycle collected, in order.
func (C *Collector) Steps() []Step { return C.steps }

// Histo returns the histogram of the candidate probabilities.
func (C *Collector) Histo() *Histo { return C.histo }

// Probabilities returns the probabilities of all the candidates collected.
func (C *Collector) Probabilities() []float64 { return C.probs }

// Summary returns the totals and averages of the cycles collected so far.
// Averages over no data are NaN.
func (C *Collector) Summary() Summary {
	S := Summary{Cycles: len(C.steps)}
	hops := make([]float64, 0, len(C.steps))
	for _, s := range C.steps {
		S.Candidates += s.Candidates
		S.Selected += s.Selected
		S.Applied += s.Applied
		S.Dropped += s.Dropped
		S.Deferred += s.Deferred
		S.Degenerate += s.Degenerate
		hops = append(hops, float64(s.Applied))
	}
	S.MeanP, S.StdP = meanStd(C.probs)
	S.MeanAppliedP, _ = meanStd(C.applied)
	S.HopsPerCycle, S.StdHops = meanStd(hops)
	return S
}

// HopsPerStep returns the steps collected and the number of hops applied in each.
func (C *Collector) HopsPerStep() (steps, hops []float64) {
	steps = make([]float64, len(C.steps))
	hops = make([]float64, len(C.steps))
	for i, s := range C.steps {
		steps[i] = float64(s.Step)
		hops[i] = float64(s.Applied)
	}
	return steps, hops
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return x[0], 0
	}
	m, s := stat.MeanStdDev(x, nil)
	return m, s
}

// Balance returns the net number of protons received by each residue over the
// hops applied in the given reports. The values add up to zero.
func Balance(reports []*qhop.Report) map[int]int {
	ret := make(map[int]int)
	for _, r := range reports {
		if r == nil {
			continue
		}
		for _, h := range r.Applied {
			ret[h.DonorRes]--
			ret[h.AcceptorRes]++
		}
	}
	for k, v := range ret {
		if v == 0 {
			delete(ret, k)
		}
	}
	return ret
}
