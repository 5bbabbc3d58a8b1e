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
	"sort"
)

// NumNodes is the number of latitude nodes in a sensitivity table.
const NumNodes = 8

// LatitudeNodes are the outer edges and midpoints of the latitude
// bands that the sensitivities were derived for [degrees].
var LatitudeNodes = [NumNodes]float64{-90, -75, -45, -15, 15, 45, 75, 90}

// Reference altitudes of the sensitivity tables [km].
const (
	LowerAltitude = 30.0
	UpperAltitude = 38.0
)

// SensitivityTable holds the forcing per emitted mass
// [mW m⁻² Tg⁻¹] of one (species, effect) pair at LatitudeNodes
// for the two reference altitudes.
type SensitivityTable struct {
	Pair
	At30, At38 [NumNodes]float64
}

// tables holds the sensitivity tables. The outermost two values on
// each side repeat the value of the adjacent latitude band.
var tables = map[Pair]SensitivityTable{
	H2OFromH2O: {
		Pair: H2OFromH2O,
		At30: [NumNodes]float64{1.70, 1.70, 1.70, 1.90, 1.90, 1.65, 1.34, 1.34},
		At38: [NumNodes]float64{1.89, 1.89, 1.89, 1.97, 1.97, 1.82, 1.59, 1.59},
	},
	O3FromH2O: {
		Pair: O3FromH2O,
		At30: [NumNodes]float64{-0.20, -0.20, -0.20, -0.08, -0.08, -0.12, -0.12, -0.12},
		At38: [NumNodes]float64{-0.19, -0.19, -0.19, -0.07, -0.07, -0.09, -0.13, -0.13},
	},
	O3FromH2: {
		Pair: O3FromH2,
		At30: [NumNodes]float64{-3.04, -3.04, -3.04, -2.46, -2.46, -2.13, -1.75, -1.75},
		At38: [NumNodes]float64{-3.81, -3.81, -3.81, -2.59, -2.59, -2.72, -2.46, -2.46},
	},
	O3FromNO: {
		Pair: O3FromNO,
		At30: [NumNodes]float64{127.0, 127.0, 127.0, 129.9, 129.9, 91.6, 69.9, 69.9},
		At38: [NumNodes]float64{102.9, 102.9, 102.9, 48.2, 48.2, 66.9, 74.3, 74.3},
	},
	H2OFromH2: {
		Pair: H2OFromH2,
		At30: [NumNodes]float64{5.17, 5.17, 5.17, 7.76, 7.76, 2.97, 1.62, 1.62},
		At38: [NumNodes]float64{9.12, 9.12, 9.12, 11.96, 11.96, 8.34, 5.50, 5.50},
	},
}

// Lookup returns the sensitivity table for p. The returned
// table is a copy.
func Lookup(p Pair) (SensitivityTable, error) {
	t, ok := tables[p]
	if !ok {
		return SensitivityTable{}, fmt.Errorf("hyperrf: no sensitivity table for %v", p)
	}
	return t, nil
}

// Tables returns copies of all registered sensitivity tables,
// ordered by species and then effect.
func Tables() []SensitivityTable {
	o := make([]SensitivityTable, 0, len(tables))
	for _, t := range tables {
		o = append(o, t)
	}
	sort.Slice(o, func(i, j int) bool {
		if o[i].Species != o[j].Species {
			return o[i].Species < o[j].Species
		}
		return o[i].Effect < o[j].Effect
	})
	return o
}
