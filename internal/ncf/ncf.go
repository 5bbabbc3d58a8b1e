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

// Package ncf holds the NetCDF reading helpers shared by the tropopause
// climatology and the emission inventory readers.
package ncf

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
)

// fillAttributes are the attributes that mark missing data.
var fillAttributes = []string{"_FillValue", "missing_value"}

// ToFloat64 converts a buffer returned by a cdf.Reader to float64.
func ToFloat64(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported netcdf data type %T", buf)
	}
}

// FillValues returns the values of the _FillValue and missing_value
// attributes of variable v.
func FillValues(ff *cdf.File, v string) ([]float64, error) {
	var o []float64
	for _, a := range fillAttributes {
		attr := ff.Header.GetAttribute(v, a)
		if attr == nil {
			continue
		}
		f, err := ToFloat64(attr)
		if err != nil {
			return nil, fmt.Errorf("variable %s attribute %s: %v", v, a, err)
		}
		o = append(o, f...)
	}
	return o, nil
}

// isFill reports whether d equals one of fill. Attributes stored with a
// wider type than the data are compared at single precision as well.
func isFill(d float64, fill []float64) bool {
	for _, f := range fill {
		if d == f || d == float64(float32(f)) {
			return true
		}
	}
	return false
}

// Read reads the values of variable v between start and end (nil for the
// whole variable). n is the number of values, or -1 for the whole
// variable. Values equal to the fill value of v are returned as NaN.
func Read(ff *cdf.File, v string, start, end []int, n int) ([]float64, error) {
	fill, err := FillValues(ff, v)
	if err != nil {
		return nil, err
	}
	r := ff.Reader(v, start, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading netcdf variable %s: %v", v, err)
	}
	data, err := ToFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %v", v, err)
	}
	if len(fill) == 0 {
		return data, nil
	}
	for i, d := range data {
		if isFill(d, fill) {
			data[i] = math.NaN()
		}
	}
	return data, nil
}

// ReadCoordinate reads the one-dimensional coordinate variable v.
func ReadCoordinate(ff *cdf.File, v string) ([]float64, error) {
	if d := ff.Header.Dimensions(v); len(d) != 1 {
		return nil, fmt.Errorf("coordinate variable %s missing or not one-dimensional", v)
	}
	return Read(ff, v, nil, nil, -1)
}
