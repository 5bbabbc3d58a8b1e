/*
Copyright © 2024 the hyperrf authors.
This file is part of hyperrf.

hyperrf is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hyperrf is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hyperrf.  If not, see <http://www.gnu.org/licenses/>.
*/

package hyperrf

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// kgPerTg converts teragrams to kilograms.
const kgPerTg = 1e9

// kgPerTonne converts metric tons to kilograms.
const kgPerTonne = 1e3

// Calculator computes radiative forcing from a SampleSet. A Calculator
// holds no per-SampleSet state and is safe for concurrent use once
// created.
type Calculator struct {
	// IncludeH2ToH2O specifies whether the water vapour forcing from
	// hydrogen emission (H2OFromH2) is included in TotalRF.
	IncludeH2ToH2O bool

	// Log receives warnings about masking. It defaults to the
	// standard logrus logger.
	Log logrus.FieldLogger

	interps map[Pair]*Interpolator
}

// NewCalculator returns a Calculator with interpolators for every
// registered sensitivity table.
func NewCalculator() (*Calculator, error) {
	c := &Calculator{
		Log:     logrus.StandardLogger(),
		interps: make(map[Pair]*Interpolator),
	}
	for _, t := range Tables() {
		ip, err := NewInterpolator(t)
		if err != nil {
			return nil, err
		}
		c.interps[t.Pair] = ip
	}
	return c, nil
}

func (c *Calculator) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// PairResult holds the forcing of one (species, effect) pair.
// The slices are aligned with the samples of the SampleSet it was
// computed from.
type PairResult struct {
	Pair

	// V30 and V38 are the sensitivities at the sample latitudes at the
	// reference altitudes [mW m⁻² Tg⁻¹].
	V30, V38 []float64

	// Sensitivity is the sensitivity at the sample latitude and
	// altitude [mW m⁻² Tg⁻¹].
	Sensitivity []float64

	// RF is the forcing contribution of each sample [mW m⁻²].
	RF []float64

	// Total is the sum of RF [mW m⁻²].
	Total float64
}

// RFFromEmission computes the forcing caused by the emission of
// p.Species through p.Effect for every sample in s.
func (c *Calculator) RFFromEmission(s *SampleSet, p Pair) (*PairResult, error) {
	ip, ok := c.interps[p]
	if !ok {
		return nil, fmt.Errorf("hyperrf: no sensitivity table for %v", p)
	}
	sens, v30, v38, err := ip.Sensitivity(s)
	if err != nil {
		return nil, err
	}
	r := &PairResult{
		Pair:        p,
		V30:         v30,
		V38:         v38,
		Sensitivity: sens,
		RF:          make([]float64, len(s.Samples)),
	}
	for i, smp := range s.Samples {
		m := smp.Mass[p.Species]
		if m == 0 {
			continue
		}
		r.RF[i] = sens[i] / kgPerTg * m
	}
	r.Total = floats.Sum(r.RF)
	return r, nil
}

// pairTotal returns the total forcing of p.
func (c *Calculator) pairTotal(s *SampleSet, p Pair) (float64, error) {
	r, err := c.RFFromEmission(s, p)
	if err != nil {
		return 0, err
	}
	return r.Total, nil
}

// TotalH2ORF returns the water vapour forcing from water vapour
// emission [mW m⁻²].
func (c *Calculator) TotalH2ORF(s *SampleSet) (float64, error) {
	return c.pairTotal(s, H2OFromH2O)
}

// TotalO3RF returns the ozone forcing from H2O, H2 and NO
// emission [mW m⁻²].
func (c *Calculator) TotalO3RF(s *SampleSet) (float64, error) {
	var sum float64
	for _, p := range O3Pairs {
		v, err := c.pairTotal(s, p)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

// TotalRF returns the net forcing: the sum of TotalH2ORF and TotalO3RF,
// plus the H2OFromH2 term if c.IncludeH2ToH2O is set [mW m⁻²].
func (c *Calculator) TotalRF(s *SampleSet) (float64, error) {
	r, err := c.Compute(s)
	if err != nil {
		return 0, err
	}
	return r.TotalRF, nil
}

// TotalEmis returns the total emitted mass of H2O, H2 and NO in metric
// tons, rounded to two decimal places.
func (c *Calculator) TotalEmis(s *SampleSet) [NumSpecies]float64 {
	var o [NumSpecies]float64
	for _, sp := range AllSpecies {
		o[sp] = round2(s.TotalMass(sp) / kgPerTonne)
	}
	return o
}

// RFResult holds the forcing totals of one SampleSet.
type RFResult struct {
	// ID is the ID of the SampleSet.
	ID string

	// Samples is the number of samples the result was computed from.
	Samples int

	// TotalRF, TotalH2ORF and TotalO3RF are as returned by the
	// Calculator methods of the same names [mW m⁻²].
	TotalRF, TotalH2ORF, TotalO3RF float64

	// H2ORFFromH2 is the water vapour forcing from hydrogen
	// emission [mW m⁻²]. It is part of TotalRF only if
	// IncludeH2ToH2O was set.
	H2ORFFromH2 float64

	// Pairs holds the total of every pair [mW m⁻²].
	Pairs map[Pair]float64

	// Emissions is the emitted mass of each species [t],
	// as returned by TotalEmis.
	Emissions [NumSpecies]float64
}

// Compute calculates every pair once and returns all totals for s.
func (c *Calculator) Compute(s *SampleSet) (*RFResult, error) {
	r := &RFResult{
		ID:        s.ID,
		Samples:   len(s.Samples),
		Pairs:     make(map[Pair]float64),
		Emissions: c.TotalEmis(s),
	}
	pairs := make([]Pair, 0, len(CorePairs)+1)
	pairs = append(pairs, CorePairs...)
	for _, p := range append(pairs, H2OFromH2) {
		v, err := c.pairTotal(s, p)
		if err != nil {
			return nil, err
		}
		r.Pairs[p] = v
	}
	r.TotalH2ORF = r.Pairs[H2OFromH2O]
	for _, p := range O3Pairs {
		r.TotalO3RF += r.Pairs[p]
	}
	r.H2ORFFromH2 = r.Pairs[H2OFromH2]
	r.TotalRF = r.TotalH2ORF + r.TotalO3RF
	if c.IncludeH2ToH2O {
		r.TotalRF += r.H2ORFFromH2
	}
	return r, nil
}
