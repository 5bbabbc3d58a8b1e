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
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// thresholdList is a Thresholder with explicit values.
type thresholdList []float64

func (t thresholdList) Thresholds(s *SampleSet) []float64 { return t }

func pressureSamples(pa ...float64) *SampleSet {
	s := &SampleSet{ID: "p"}
	for i, p := range pa {
		smp := Sample{Latitude: float64(i), AltitudeKm: 30, AltitudePa: p}
		smp.Mass[H2O] = 1000
		s.Samples = append(s.Samples, smp)
	}
	return s
}

func TestMaskFixedLevel(t *testing.T) {
	c := mustCalculator(t)
	s := pressureSamples(5000, 25000, 20000, 100, 30000)
	o, stats := c.Mask(s, FixedLevel(200))
	if stats.Input != 5 || stats.Masked != 2 || stats.Unresolved != 0 {
		t.Errorf("stats: %+v", stats)
	}
	want := []float64{5000, 20000, 100}
	if o.Len() != len(want) {
		t.Fatalf("have %d samples, want %d", o.Len(), len(want))
	}
	for i, w := range want {
		if o.Samples[i].AltitudePa != w {
			t.Errorf("sample %d: have %g Pa, want %g Pa", i, o.Samples[i].AltitudePa, w)
		}
	}
	if s.Len() != 5 {
		t.Errorf("input was modified")
	}

	again, stats2 := c.Mask(o, FixedLevel(200))
	if again.Len() != o.Len() || stats2.Masked != 0 {
		t.Errorf("masking is not idempotent: %d → %d samples", o.Len(), again.Len())
	}
}

func TestMaskUnresolved(t *testing.T) {
	c := mustCalculator(t)
	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf
	c.Log = log

	s := pressureSamples(30000, 30000, 100)
	o, stats := c.Mask(s, thresholdList{math.NaN(), 20000, math.NaN()})
	if stats.Unresolved != 2 || stats.Masked != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if o.Len() != 2 || o.Samples[0].AltitudePa != 30000 || o.Samples[1].AltitudePa != 100 {
		t.Errorf("unresolved samples should be kept: %+v", o.Samples)
	}
	if !strings.Contains(buf.String(), "unresolved=2") {
		t.Errorf("missing warning, log is %q", buf.String())
	}
}

func TestMaskValues(t *testing.T) {
	c := mustCalculator(t)
	s := pressureSamples(5000, 25000, 20000)
	o, stats := c.MaskValues(s, FixedLevel(200))
	if stats.Masked != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if o.Len() != s.Len() {
		t.Fatalf("have %d samples, want %d", o.Len(), s.Len())
	}
	masses := o.Masses(H2O)
	want := []float64{1000, 0, 1000}
	for i, w := range want {
		if masses[i] != w {
			t.Errorf("sample %d: have %g kg, want %g kg", i, masses[i], w)
		}
	}
	if s.Samples[1].Mass[H2O] != 1000 {
		t.Errorf("input was modified")
	}

	a, err := c.Compute(o)
	if err != nil {
		t.Fatal(err)
	}
	masked, _ := c.Mask(s, FixedLevel(200))
	b, err := c.Compute(masked)
	if err != nil {
		t.Fatal(err)
	}
	if different(a.TotalRF, b.TotalRF, testTolerance) {
		t.Errorf("MaskValues and Mask disagree: %g vs %g", a.TotalRF, b.TotalRF)
	}
}
