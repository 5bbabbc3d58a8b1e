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
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/pkg/errors"
	"github.com/spatialmodel/hyperrf"
	"github.com/spatialmodel/hyperrf/internal/ncf"
)

// EarthRadius is the radius used for grid cell areas [km].
const EarthRadius = 6371.0

// inventoryDims are the dimensions of inventory emission variables.
var inventoryDims = []string{"time", "alt", "lat", "lon"}

// inventoryVars maps the inventory variable names to species.
var inventoryVars = map[string]hyperrf.Species{
	"H2O": hyperrf.H2O,
	"H2":  hyperrf.H2,
	"NO":  hyperrf.NO,
}

// readInventory reads a gridded emission inventory. Every grid cell
// with a nonzero emission of any species becomes one sample located
// at the cell center. The emitted mass is the emission density
// multiplied by the cell area and the altitude of the cell in km.
// Densities equal to the fill value of their variable are treated as
// missing and contribute no mass; their number is returned as missing.
func readInventory(path string) (samples []hyperrf.Sample, missing int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "loader")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, 0, errors.Wrap(err, "loader")
	}
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "loader: reading netcdf header of %s", path)
	}

	alt, err := ncf.ReadCoordinate(ff, "alt")
	if err != nil {
		return nil, 0, errors.Wrap(err, path)
	}
	lat, err := ncf.ReadCoordinate(ff, "lat")
	if err != nil {
		return nil, 0, errors.Wrap(err, path)
	}
	lon, err := ncf.ReadCoordinate(ff, "lon")
	if err != nil {
		return nil, 0, errors.Wrap(err, path)
	}
	area, err := cellAreas(lat, lon)
	if err != nil {
		return nil, 0, errors.Wrap(err, path)
	}

	density := make(map[hyperrf.Species]*sparse.DenseArray)
	for name, sp := range inventoryVars {
		d, err := readVariable(ff, name, info.Size())
		if err != nil {
			return nil, 0, errors.Wrap(err, path)
		}
		if d.Shape[1] != len(alt) || d.Shape[2] != len(lat) || d.Shape[3] != len(lon) {
			return nil, 0, fmt.Errorf("loader: %s: variable %s has shape %v; want [time %d %d %d]",
				path, name, d.Shape, len(alt), len(lat), len(lon))
		}
		density[sp] = d
	}
	nt := density[hyperrf.H2O].Shape[0]
	for sp, d := range density {
		if d.Shape[0] != nt {
			return nil, 0, fmt.Errorf("loader: %s: variable %v has %d time steps; want %d", path, sp, d.Shape[0], nt)
		}
	}

	km := make([]float64, len(alt))
	pa := make([]float64, len(alt))
	for k, ft := range alt {
		km[k] = feetToKm(ft)
		if pa[k], err = AltitudeToPressure(km[k]); err != nil {
			return nil, 0, errors.Wrap(err, path)
		}
	}

	for t := 0; t < nt; t++ {
		for k := range alt {
			for j := range lat {
				for i := range lon {
					var s hyperrf.Sample
					var total float64
					for sp, d := range density {
						v := d.Get(t, k, j, i)
						if math.IsNaN(v) {
							missing++
							continue
						}
						s.Mass[sp] = v * km[k] * area.Get(j, i) // kg/km³ × km³
						total += math.Abs(v)
					}
					if total == 0 {
						continue
					}
					s.Latitude, s.Longitude = lat[j], lon[i]
					s.AltitudeKm, s.AltitudePa = km[k], pa[k]
					samples = append(samples, s)
				}
			}
		}
	}
	return samples, missing, nil
}

// cellAreas returns the area [km²] of each cell of a regular
// latitude-longitude grid given the cell center coordinates [degrees].
// Cell edges lie halfway between centers; the outermost edges are
// placed half a cell beyond the outermost centers, latitudes being
// limited to ±90°.
func cellAreas(lat, lon []float64) (*sparse.DenseArray, error) {
	latEdges, err := edges(lat)
	if err != nil {
		return nil, fmt.Errorf("latitude: %v", err)
	}
	lonEdges, err := edges(lon)
	if err != nil {
		return nil, fmt.Errorf("longitude: %v", err)
	}
	rad := math.Pi / 180
	o := sparse.ZerosDense(len(lat), len(lon))
	for j := range lat {
		s0 := math.Sin(math.Max(-90, math.Min(90, latEdges[j])) * rad)
		s1 := math.Sin(math.Max(-90, math.Min(90, latEdges[j+1])) * rad)
		for i := range lon {
			dlon := (lonEdges[i+1] - lonEdges[i]) * rad
			o.Set(math.Abs(EarthRadius*EarthRadius*dlon*(s1-s0)), j, i)
		}
	}
	return o, nil
}

// edges returns the n+1 cell edges for n cell centers.
func edges(c []float64) ([]float64, error) {
	n := len(c)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 coordinates to determine the cell size, have %d", n)
	}
	o := make([]float64, n+1)
	for i := 1; i < n; i++ {
		o[i] = (c[i-1] + c[i]) / 2
	}
	o[0] = c[0] - (c[1]-c[0])/2
	o[n] = c[n-1] + (c[n-1]-c[n-2])/2
	return o, nil
}

// readVariable reads an emission variable with dimensions
// (time, alt, lat, lon). time may be the record dimension.
func readVariable(ff *cdf.File, v string, fileSize int64) (*sparse.DenseArray, error) {
	dims := ff.Header.Dimensions(v)
	if len(dims) != len(inventoryDims) {
		return nil, fmt.Errorf("loader: variable %s has dimensions %v; want %v", v, dims, inventoryDims)
	}
	for i, d := range inventoryDims {
		if dims[i] != d {
			return nil, fmt.Errorf("loader: variable %s has dimensions %v; want %v", v, dims, inventoryDims)
		}
	}
	shape := append([]int(nil), ff.Header.Lengths(v)...)
	if shape[0] == 0 { // record variable
		shape[0] = int(ff.Header.NumRecs(fileSize))
	}
	n := 1
	for _, l := range shape {
		n *= l
	}
	if n == 0 {
		return sparse.ZerosDense(shape...), nil
	}
	start, end := make([]int, len(shape)), make([]int, len(shape))
	end[0] = shape[0]
	data, err := ncf.Read(ff, v, start, end, n)
	if err != nil {
		return nil, fmt.Errorf("loader: %v", err)
	}
	o := sparse.ZerosDense(shape...)
	copy(o.Elements, data)
	return o, nil
}
