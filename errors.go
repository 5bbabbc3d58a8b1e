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

import "fmt"

// ResourceError is returned when a resource that every calculation
// depends on, such as the tropopause climatology, is missing or
// cannot be read. No forcing can be computed after a ResourceError.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("hyperrf: resource %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error { return e.Err }

// OutOfDomainError is returned when a sample latitude lies outside of
// the latitude range covered by the sensitivity tables. Latitudes are
// never extrapolated.
type OutOfDomainError struct {
	Pair     Pair
	Index    int
	Latitude float64
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("hyperrf: %v: latitude %g of sample %d is outside of [%g, %g]",
		e.Pair, e.Latitude, e.Index, LatitudeNodes[0], LatitudeNodes[NumNodes-1])
}
