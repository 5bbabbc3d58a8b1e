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
	"math"

	"gonum.org/v1/gonum/interp"
)

// TropicLimit is the absolute latitude [degrees] at and below which the
// cubic spline is used for horizontal interpolation. Poleward of it the
// piecewise linear interpolant is used.
const TropicLimit = 45.0

// Interpolator interpolates one sensitivity table to sample locations.
// It is safe for concurrent use.
type Interpolator struct {
	table SensitivityTable

	// polar and tropic hold the interpolants for the 30 km table (index 0)
	// and the 38 km table (index 1).
	polar, tropic [2]interp.Predictor
}

// NewInterpolator fits the horizontal interpolants for t.
func NewInterpolator(t SensitivityTable) (*Interpolator, error) {
	ip := &Interpolator{table: t}
	xs := make([]float64, NumNodes)
	copy(xs, LatitudeNodes[:])
	for i, ys := range [2][]float64{ip.table.At30[:], ip.table.At38[:]} {
		pl := new(interp.PiecewiseLinear)
		if err := pl.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("hyperrf: fitting linear interpolant for %v: %v", t.Pair, err)
		}
		nak := new(interp.NotAKnotCubic)
		if err := nak.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("hyperrf: fitting cubic interpolant for %v: %v", t.Pair, err)
		}
		ip.polar[i] = pl
		ip.tropic[i] = nak
	}
	return ip, nil
}

// Table returns the sensitivity table that ip interpolates.
func (ip *Interpolator) Table() SensitivityTable { return ip.table }

// Horizontal returns the sensitivity at latitude lat at 30 km (v30)
// and 38 km (v38) [mW m⁻² Tg⁻¹]. An *OutOfDomainError with Index -1
// is returned if lat is outside of the table.
func (ip *Interpolator) Horizontal(lat float64) (v30, v38 float64, err error) {
	if math.IsNaN(lat) || lat < LatitudeNodes[0] || lat > LatitudeNodes[NumNodes-1] {
		return math.NaN(), math.NaN(), &OutOfDomainError{Pair: ip.table.Pair, Index: -1, Latitude: lat}
	}
	f := ip.polar
	if math.Abs(lat) <= TropicLimit {
		f = ip.tropic
	}
	return f[0].Predict(lat), f[1].Predict(lat), nil
}

// HorizontalAll returns the sensitivities at 30 km and 38 km for
// every sample in s.
func (ip *Interpolator) HorizontalAll(s *SampleSet) (v30, v38 []float64, err error) {
	v30 = make([]float64, len(s.Samples))
	v38 = make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		v30[i], v38[i], err = ip.Horizontal(smp.Latitude)
		if err != nil {
			err.(*OutOfDomainError).Index = i
			return nil, nil, err
		}
	}
	return v30, v38, nil
}

// Vertical evaluates the straight line through (30 km, v30) and
// (38 km, v38) at altitude altKm. Altitudes outside of [30, 38] km are
// extrapolated along the same line.
func Vertical(altKm, v30, v38 float64) float64 {
	w := (altKm - LowerAltitude) / (UpperAltitude - LowerAltitude)
	return (1-w)*v30 + w*v38
}

// VerticalAll applies Vertical to every sample in s.
func VerticalAll(s *SampleSet, v30, v38 []float64) []float64 {
	o := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		o[i] = Vertical(smp.AltitudeKm, v30[i], v38[i])
	}
	return o
}

// Sensitivity returns the sensitivity at the location and altitude of
// every sample in s [mW m⁻² Tg⁻¹], along with the intermediate values at
// the reference altitudes.
func (ip *Interpolator) Sensitivity(s *SampleSet) (sens, v30, v38 []float64, err error) {
	v30, v38, err = ip.HorizontalAll(s)
	if err != nil {
		return nil, nil, nil, err
	}
	return VerticalAll(s, v30, v38), v30, v38, nil
}
