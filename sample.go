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

	"gonum.org/v1/gonum/floats"
)

// Sample is one emission point: a trajectory waypoint or a grid cell
// with nonzero emissions.
type Sample struct {
	// Latitude and Longitude are in degrees.
	Latitude, Longitude float64

	// AltitudeKm is the altitude in km.
	AltitudeKm float64

	// AltitudePa is the ambient pressure in Pa. Higher pressure means
	// lower altitude.
	AltitudePa float64

	// Mass holds the emitted mass of each species in kg,
	// indexed by Species.
	Mass [NumSpecies]float64
}

// SampleSet is the ordered collection of samples read from one
// trajectory or inventory file.
type SampleSet struct {
	// ID identifies the source of the samples in reports.
	ID string

	Samples []Sample
}

// NewSampleSet returns a SampleSet holding samples.
func NewSampleSet(id string, samples []Sample) *SampleSet {
	return &SampleSet{ID: id, Samples: samples}
}

// Len returns the number of samples.
func (s *SampleSet) Len() int { return len(s.Samples) }

// Clone returns a copy of s that shares no memory with s.
func (s *SampleSet) Clone() *SampleSet {
	o := &SampleSet{ID: s.ID, Samples: make([]Sample, len(s.Samples))}
	copy(o.Samples, s.Samples)
	return o
}

// Masses returns the emitted mass of species sp for every sample [kg].
func (s *SampleSet) Masses(sp Species) []float64 {
	o := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		o[i] = smp.Mass[sp]
	}
	return o
}

// TotalMass returns the total emitted mass of species sp [kg].
func (s *SampleSet) TotalMass(sp Species) float64 {
	return floats.Sum(s.Masses(sp))
}

// round2 rounds v to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
