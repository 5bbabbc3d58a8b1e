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
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/unit"
	"github.com/pkg/errors"
	"github.com/spatialmodel/hyperrf"
)

// waypoint is one row of a flight trajectory.
type waypoint struct {
	Geom geom.Geom // only set for shapefiles

	PosLon   float64 `shp:"poslon"`
	PosLat   float64 `shp:"poslat"`
	AltFt    float64 `shp:"altft"`
	Pressure float64 `shp:"pressure"` // Pa

	// Emission rates [g/s].
	H2O, H2, NO float64

	// ST is the time spent at the waypoint [s].
	ST float64 `shp:"ST"`
}

// trajectoryColumns are the attributes every trajectory needs.
var trajectoryColumns = []string{"poslon", "poslat", "altft", "pressure", "h2o", "h2", "no", "st"}

var gramPerSecond = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -1}

// emittedMass returns the mass [kg] emitted at rate [g/s] for dt seconds.
func emittedMass(rate, dt float64) (float64, error) {
	m := unit.Mul(unit.New(rate/1000, gramPerSecond), unit.New(dt, unit.Second))
	if err := m.Check(unit.Kilogram); err != nil {
		return 0, err
	}
	return m.Value(), nil
}

func (w waypoint) sample() (hyperrf.Sample, error) {
	s := hyperrf.Sample{
		Latitude:   w.PosLat,
		Longitude:  w.PosLon,
		AltitudeKm: feetToKm(w.AltFt),
		AltitudePa: w.Pressure,
	}
	for sp, rate := range map[hyperrf.Species]float64{hyperrf.H2O: w.H2O, hyperrf.H2: w.H2, hyperrf.NO: w.NO} {
		m, err := emittedMass(rate, w.ST)
		if err != nil {
			return s, err
		}
		s.Mass[sp] = m
	}
	return s, nil
}

// readCSV reads a trajectory from a CSV file with a header row.
// Column names are case insensitive and may appear in any order.
func readCSV(path string) ([]hyperrf.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "loader")
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "loader: reading header of %s", path)
	}
	col := make(map[string]int)
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make([]int, len(trajectoryColumns))
	for i, c := range trajectoryColumns {
		j, ok := col[c]
		if !ok {
			return nil, errors.Errorf("loader: %s: missing column %s", path, c)
		}
		idx[i] = j
	}

	var o []hyperrf.Sample
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "loader: reading %s", path)
		}
		var v [8]float64
		for i, j := range idx {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "loader: %s line %d column %s", path, line, trajectoryColumns[i])
			}
		}
		s, err := waypoint{
			PosLon: v[0], PosLat: v[1], AltFt: v[2], Pressure: v[3],
			H2O: v[4], H2: v[5], NO: v[6], ST: v[7],
		}.sample()
		if err != nil {
			return nil, errors.Wrapf(err, "loader: %s line %d", path, line)
		}
		o = append(o, s)
	}
	return o, nil
}

// readShapefile reads a trajectory from a point shapefile. The
// coordinates of the points take precedence over the poslon and poslat
// attributes.
func readShapefile(path string) ([]hyperrf.Sample, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: opening shapefile %s", path)
	}
	defer d.Close()

	fields := make(map[string]bool)
	for _, f := range d.Fields() {
		fields[strings.ToLower(f.String())] = true
	}
	for _, c := range trajectoryColumns {
		if c == "poslon" || c == "poslat" {
			continue
		}
		if !fields[c] {
			return nil, errors.Errorf("loader: shapefile %s: missing attribute %s", path, c)
		}
	}

	var o []hyperrf.Sample
	for {
		var w waypoint
		if more := d.DecodeRow(&w); !more {
			break
		}
		switch g := w.Geom.(type) {
		case geom.Point:
			w.PosLon, w.PosLat = g.X, g.Y
		case *geom.Point:
			w.PosLon, w.PosLat = g.X, g.Y
		default:
			return nil, errors.Errorf("loader: shapefile %s: row %d has geometry %T; want points", path, len(o), w.Geom)
		}
		s, err := w.sample()
		if err != nil {
			return nil, errors.Wrapf(err, "loader: shapefile %s row %d", path, len(o))
		}
		o = append(o, s)
	}
	if err := d.Error(); err != nil {
		return nil, errors.Wrapf(err, "loader: reading shapefile %s", path)
	}
	return o, nil
}
