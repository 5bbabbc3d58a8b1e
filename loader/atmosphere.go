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

package loader

import (
	"fmt"
	"math"
)

// Constants of the 1976 U.S. / ICAO standard atmosphere.
const (
	seaLevelPressure    = 101325.0 // Pa
	seaLevelTemperature = 288.15   // K

	// hydrostaticConstant is g0·M/R* [K/km].
	hydrostaticConstant = 9.80665 * 0.0289644 / 8.3144598 * 1000

	// MaxStandardAltitude is the top of the standard atmosphere [km].
	MaxStandardAltitude = 84.852
)

// atmosphereLayer is a layer of constant temperature lapse rate.
type atmosphereLayer struct {
	base  float64 // geopotential altitude [km]
	lapse float64 // K/km
	t, p  float64 // temperature [K] and pressure [Pa] at the base
}

// standardAtmosphere holds the layers of the standard atmosphere. The
// base temperatures and pressures are filled in by init so that the
// profile is continuous.
var standardAtmosphere = []atmosphereLayer{
	{base: 0, lapse: -6.5},
	{base: 11, lapse: 0},
	{base: 20, lapse: 1.0},
	{base: 32, lapse: 2.8},
	{base: 47, lapse: 0},
	{base: 51, lapse: -2.8},
	{base: 71, lapse: -2.0},
}

func init() {
	standardAtmosphere[0].t = seaLevelTemperature
	standardAtmosphere[0].p = seaLevelPressure
	for i := 1; i < len(standardAtmosphere); i++ {
		prev := standardAtmosphere[i-1]
		standardAtmosphere[i].t, standardAtmosphere[i].p = prev.at(standardAtmosphere[i].base)
	}
}

// at returns the temperature and pressure at altitude h [km] within l.
func (l atmosphereLayer) at(h float64) (t, p float64) {
	dh := h - l.base
	t = l.t + l.lapse*dh
	if l.lapse == 0 {
		return t, l.p * math.Exp(-hydrostaticConstant*dh/l.t)
	}
	return t, l.p * math.Pow(l.t/t, hydrostaticConstant/l.lapse)
}

// AltitudeToPressure returns the standard-atmosphere pressure [Pa] at the
// geopotential altitude km. Altitudes outside of
// [0, MaxStandardAltitude] result in an error.
func AltitudeToPressure(km float64) (float64, error) {
	if math.IsNaN(km) || km < 0 || km > MaxStandardAltitude {
		return math.NaN(), fmt.Errorf("loader: altitude %g km is outside of the standard atmosphere (0–%g km)",
			km, MaxStandardAltitude)
	}
	i := len(standardAtmosphere) - 1
	for standardAtmosphere[i].base > km {
		i--
	}
	_, p := standardAtmosphere[i].at(km)
	return p, nil
}
