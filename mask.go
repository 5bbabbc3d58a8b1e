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
	"math"

	"github.com/sirupsen/logrus"
)

// A Thresholder returns, for every sample in a SampleSet, the pressure
// [Pa] above which the sample is considered to be in the troposphere.
// A NaN threshold means that it could not be determined.
// *TropopauseField and FixedLevel are Thresholders.
type Thresholder interface {
	Thresholds(s *SampleSet) []float64
}

// FixedLevel is a constant masking level in hPa.
type FixedLevel float64

// Thresholds returns the level in Pa for every sample.
func (l FixedLevel) Thresholds(s *SampleSet) []float64 {
	o := make([]float64, len(s.Samples))
	for i := range o {
		o[i] = float64(l) * 100
	}
	return o
}

// MaskStats summarizes a masking pass.
type MaskStats struct {
	// Input is the number of samples before masking.
	Input int
	// Masked is the number of samples classified as tropospheric.
	Masked int
	// Unresolved is the number of samples whose threshold could not be
	// determined. They are retained.
	Unresolved int
}

// Mask returns a copy of s without the samples whose pressure is greater
// than the threshold at their location, i.e. the samples below the
// tropopause or below a fixed level. s is not modified. Samples with an
// undetermined threshold are kept and counted in MaskStats.Unresolved.
func (c *Calculator) Mask(s *SampleSet, t Thresholder) (*SampleSet, MaskStats) {
	o := &SampleSet{ID: s.ID, Samples: make([]Sample, 0, len(s.Samples))}
	stats := c.classify(s, t, func(smp Sample, tropospheric bool) {
		if !tropospheric {
			o.Samples = append(o.Samples, smp)
		}
	})
	return o, stats
}

// MaskValues is like Mask but keeps every sample, setting the emitted
// mass of tropospheric samples to zero so that the result stays aligned
// with s.
func (c *Calculator) MaskValues(s *SampleSet, t Thresholder) (*SampleSet, MaskStats) {
	o := &SampleSet{ID: s.ID, Samples: make([]Sample, 0, len(s.Samples))}
	stats := c.classify(s, t, func(smp Sample, tropospheric bool) {
		if tropospheric {
			smp.Mass = [NumSpecies]float64{}
		}
		o.Samples = append(o.Samples, smp)
	})
	return o, stats
}

func (c *Calculator) classify(s *SampleSet, t Thresholder, f func(Sample, bool)) MaskStats {
	thresholds := t.Thresholds(s)
	stats := MaskStats{Input: len(s.Samples)}
	for i, smp := range s.Samples {
		th := thresholds[i]
		if math.IsNaN(th) {
			stats.Unresolved++
			f(smp, false)
			continue
		}
		trop := smp.AltitudePa > th
		if trop {
			stats.Masked++
		}
		f(smp, trop)
	}
	if stats.Unresolved > 0 {
		c.log().WithFields(logrus.Fields{
			"id":         s.ID,
			"unresolved": stats.Unresolved,
			"samples":    stats.Input,
		}).Warn("hyperrf: tropopause could not be resolved for some samples; keeping them")
	}
	return stats
}
