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

// Package hyperrf estimates the stratospheric radiative forcing caused by
// water vapour (H2O), hydrogen (H2) and nitrogen oxide (NO) emitted by
// high-altitude aircraft and rockets.
//
// Forcing sensitivities are tabulated for eight latitude nodes at two
// reference altitudes (30 and 38 km). For each emission sample the
// sensitivity is first interpolated in latitude (cubic spline within ±45°,
// piecewise linear poleward of that) at both reference altitudes and then
// linearly inter- or extrapolated to the altitude of the sample. Samples
// below the tropopause should be removed with Calculator.Mask beforehand,
// because the sensitivities are only meaningful in the stratosphere.
package hyperrf

import "fmt"

// Version gives the version number.
const Version = "0.2.0"

// Species is an emitted trace gas.
type Species int

// The tracked species.
const (
	H2O Species = iota
	H2
	NO

	// NumSpecies is the number of tracked species.
	NumSpecies int = iota
)

// AllSpecies lists the tracked species in report order.
var AllSpecies = []Species{H2O, H2, NO}

func (s Species) String() string {
	switch s {
	case H2O:
		return "H2O"
	case H2:
		return "H2"
	case NO:
		return "NO"
	default:
		return fmt.Sprintf("Species(%d)", int(s))
	}
}

// Effect is the atmospheric quantity whose change causes the forcing.
type Effect int

const (
	// H2ORF is forcing caused by a change in stratospheric water vapour.
	H2ORF Effect = iota
	// O3RF is forcing caused by a change in ozone.
	O3RF
)

func (e Effect) String() string {
	switch e {
	case H2ORF:
		return "H2O"
	case O3RF:
		return "O3"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// Pair identifies an emitted species together with the quantity
// it forces, e.g. "O3 RF from NO".
type Pair struct {
	Species Species
	Effect  Effect
}

func (p Pair) String() string {
	return fmt.Sprintf("%v RF from %v", p.Effect, p.Species)
}

// The (species, effect) pairs with tabulated sensitivities.
var (
	H2OFromH2O = Pair{Species: H2O, Effect: H2ORF}
	O3FromH2O  = Pair{Species: H2O, Effect: O3RF}
	O3FromH2   = Pair{Species: H2, Effect: O3RF}
	O3FromNO   = Pair{Species: NO, Effect: O3RF}

	// H2OFromH2 is available for reporting but is not part of the
	// net forcing unless Calculator.IncludeH2ToH2O is set.
	H2OFromH2 = Pair{Species: H2, Effect: H2ORF}
)

// O3Pairs are the pairs that make up the net ozone forcing.
var O3Pairs = []Pair{O3FromH2O, O3FromH2, O3FromNO}

// CorePairs are the pairs that make up the net forcing.
var CorePairs = []Pair{H2OFromH2O, O3FromH2O, O3FromH2, O3FromNO}
