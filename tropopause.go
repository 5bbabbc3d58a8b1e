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
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/hyperrf/internal/ncf"
)

// TropopauseField is a gridded climatological tropopause pressure
// [Pa] on a regular latitude-longitude grid. It is read-only after
// creation and safe for concurrent use.
type TropopauseField struct {
	lat, lon []float64 // ascending
	p        *sparse.DenseArray
}

// NewTropopauseField creates a field from the grid coordinates [degrees]
// and a pressure array with dimensions [len(lat), len(lon)]. The
// coordinates must be strictly monotonic; descending coordinates are
// reordered.
func NewTropopauseField(lat, lon []float64, pressure *sparse.DenseArray) (*TropopauseField, error) {
	if len(pressure.Shape) != 2 || pressure.Shape[0] != len(lat) || pressure.Shape[1] != len(lon) {
		return nil, fmt.Errorf("hyperrf: tropopause pressure shape %v does not match %d latitudes × %d longitudes",
			pressure.Shape, len(lat), len(lon))
	}
	if len(lat) < 2 || len(lon) < 2 {
		return nil, fmt.Errorf("hyperrf: tropopause grid needs at least 2 latitudes and 2 longitudes")
	}
	latIdx, err := ascending(lat)
	if err != nil {
		return nil, fmt.Errorf("hyperrf: tropopause latitude: %v", err)
	}
	lonIdx, err := ascending(lon)
	if err != nil {
		return nil, fmt.Errorf("hyperrf: tropopause longitude: %v", err)
	}
	f := &TropopauseField{
		lat: make([]float64, len(lat)),
		lon: make([]float64, len(lon)),
		p:   sparse.ZerosDense(len(lat), len(lon)),
	}
	for i, ii := range latIdx {
		f.lat[i] = lat[ii]
		for j, jj := range lonIdx {
			f.lon[j] = lon[jj]
			f.p.Set(pressure.Get(ii, jj), i, j)
		}
	}
	if f.lon[len(f.lon)-1]-f.lon[0] >= 360 {
		return nil, fmt.Errorf("hyperrf: tropopause longitudes span more than 360°")
	}
	return f, nil
}

// ascending returns the indices that put x in ascending order, or an
// error if x is not strictly monotonic.
func ascending(x []float64) ([]int, error) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	if len(x) > 1 && x[1] < x[0] {
		for i := range idx {
			idx[i] = len(x) - 1 - i
		}
	}
	for i := 1; i < len(idx); i++ {
		if !(x[idx[i]] > x[idx[i-1]]) {
			return nil, fmt.Errorf("coordinates are not strictly monotonic at index %d", idx[i])
		}
	}
	return idx, nil
}

// PressureAt returns the tropopause pressure [Pa] at the given location,
// bilinearly interpolated between the surrounding grid nodes. Longitude is
// periodic. NaN is returned for locations poleward of the outermost
// latitude nodes, with non-finite coordinates, or next to a node that
// holds no valid data.
func (f *TropopauseField) PressureAt(lat, lon float64) float64 {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return math.NaN()
	}
	nlat := len(f.lat)
	if lat < f.lat[0] || lat > f.lat[nlat-1] {
		return math.NaN()
	}
	i := sort.SearchFloat64s(f.lat, lat) // f.lat[i] >= lat
	if i == 0 {
		i = 1
	}
	fy := (lat - f.lat[i-1]) / (f.lat[i] - f.lat[i-1])

	j0, j1, fx := f.lonBracket(lon)
	nodes := [4]struct {
		w float64
		i, j int
	}{
		{(1 - fy) * (1 - fx), i - 1, j0},
		{(1 - fy) * fx, i - 1, j1},
		{fy * (1 - fx), i, j0},
		{fy * fx, i, j1},
	}
	var p float64
	for _, n := range nodes {
		if n.w != 0 { // a node without data only matters if it has weight
			p += n.w * f.p.Get(n.i, n.j)
		}
	}
	return p
}

// lonBracket returns the indices of the longitude nodes on either side
// of lon and the weight of the second one, wrapping around the globe.
func (f *TropopauseField) lonBracket(lon float64) (j0, j1 int, w float64) {
	n := len(f.lon)
	lon0 := f.lon[0]
	x := math.Mod(lon-lon0, 360)
	if x < 0 {
		x += 360
	}
	x += lon0 // lon0 <= x < lon0+360
	j := sort.SearchFloat64s(f.lon, x)
	switch {
	case j < n && f.lon[j] == x:
		return j, j, 0
	case j == n:
		// Between the last node and the first node shifted by 360°.
		span := f.lon[0] + 360 - f.lon[n-1]
		return n - 1, 0, (x - f.lon[n-1]) / span
	default:
		return j - 1, j, (x - f.lon[j-1]) / (f.lon[j] - f.lon[j-1])
	}
}

// Thresholds returns the tropopause pressure at the location of every
// sample, with NaN for samples that could not be matched to the field.
// It allows f to be used for masking.
func (f *TropopauseField) Thresholds(s *SampleSet) []float64 {
	o := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		o[i] = f.PressureAt(smp.Latitude, smp.Longitude)
	}
	return o
}

// Shape returns the number of latitude and longitude nodes.
func (f *TropopauseField) Shape() (nlat, nlon int) { return len(f.lat), len(f.lon) }

// LoadTropopause reads variable from the NetCDF (classic format) file at
// path and averages it over the dimension timeDim, if present. The
// variable must otherwise be dimensioned by "lat" and "lon", which must
// also exist as coordinate variables. Failures are returned as
// *ResourceError.
func LoadTropopause(path, variable, timeDim string) (*TropopauseField, error) {
	f, err := loadTropopause(path, variable, timeDim)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}
	return f, nil
}

func loadTropopause(path, variable, timeDim string) (*TropopauseField, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	ff, err := cdf.Open(file)
	if err != nil {
		return nil, fmt.Errorf("reading netcdf header: %v", err)
	}
	lat, err := ncf.ReadCoordinate(ff, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := ncf.ReadCoordinate(ff, "lon")
	if err != nil {
		return nil, err
	}

	dims := ff.Header.Dimensions(variable)
	if dims == nil {
		return nil, fmt.Errorf("variable %s not in file", variable)
	}
	var hasTime bool
	switch {
	case len(dims) == 3 && dims[0] == timeDim && dims[1] == "lat" && dims[2] == "lon":
		hasTime = true
	case len(dims) == 2 && dims[0] == "lat" && dims[1] == "lon":
	default:
		return nil, fmt.Errorf("variable %s has dimensions %v; want [%s lat lon] or [lat lon]",
			variable, dims, timeDim)
	}

	lengths := ff.Header.Lengths(variable)
	nt := 1
	if hasTime {
		nt = lengths[0]
		if nt == 0 { // record variable
			nt = int(ff.Header.NumRecs(info.Size()))
		}
		if nt == 0 {
			return nil, fmt.Errorf("variable %s has no records", variable)
		}
	}
	nlat, nlon := len(lat), len(lon)
	// Fill values are skipped; nodes without any valid value are NaN.
	sum := make([]float64, nlat*nlon)
	count := make([]int, nlat*nlon)
	for t := 0; t < nt; t++ {
		var data []float64
		if hasTime {
			start, end := make([]int, 3), make([]int, 3)
			start[0], end[0] = t, t+1
			data, err = ncf.Read(ff, variable, start, end, nlat*nlon)
		} else {
			data, err = ncf.Read(ff, variable, nil, nil, -1)
		}
		if err != nil {
			return nil, err
		}
		if len(data) != nlat*nlon {
			return nil, fmt.Errorf("variable %s: read %d values, want %d", variable, len(data), nlat*nlon)
		}
		for k, v := range data {
			if math.IsNaN(v) {
				continue
			}
			sum[k] += v
			count[k]++
		}
	}
	mean := sparse.ZerosDense(nlat, nlon)
	for k, n := range count {
		if n == 0 {
			mean.Elements[k] = math.NaN()
			continue
		}
		mean.Elements[k] = sum[k] / float64(n)
	}
	return NewTropopauseField(lat, lon, mean)
}

// tropopauseRequest identifies a tropopause resource.
type tropopauseRequest struct {
	path, variable, timeDim string
}

var (
	tropopauseCache     *requestcache.Cache
	tropopauseCacheOnce sync.Once
)

// OpenTropopause returns the tropopause field stored in path, loading it
// with LoadTropopause the first time it is requested. Later requests,
// including concurrent ones, share the same read-only field.
func OpenTropopause(path, variable, timeDim string) (*TropopauseField, error) {
	tropopauseCacheOnce.Do(func() {
		tropopauseCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			r := req.(tropopauseRequest)
			return LoadTropopause(r.path, r.variable, r.timeDim)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(10))
	})
	req := tropopauseRequest{path: path, variable: variable, timeDim: timeDim}
	key := fmt.Sprintf("%s|%s|%s", path, variable, timeDim)
	r := tropopauseCache.NewRequest(context.Background(), req, key)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*TropopauseField), nil
}
