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

// Package loader reads emission samples from flight trajectories and
// gridded emission inventories.
//
// Trajectories are read from CSV files or point shapefiles with the
// attributes poslon, poslat, altft, pressure, H2O, H2, NO and ST, where
// H2O, H2 and NO are emission rates [g/s] and ST is the time spent at the
// waypoint [s]. Inventories are read from NetCDF files holding emission
// densities [kg/km³] on an (time, alt, lat, lon) grid.
package loader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
)

// UnsupportedFormatError is returned for files whose format cannot be
// determined from their extension.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == ".mat" {
		return fmt.Sprintf("loader: %s: MATLAB files are not supported; export the trajectory to .csv or .shp", e.Path)
	}
	return fmt.Sprintf("loader: %s: unsupported file format %q", e.Path, e.Ext)
}

// DefaultLabelPattern extracts the aircraft or scenario name from file
// names such as "traj_ory_A320_2022.csv".
var DefaultLabelPattern = regexp.MustCompile(`ory_(.*?)_2022`)

// Label returns the identifier of the emission file at path. If pattern
// is not nil and matches the base name of the file, the first submatch
// is used. Otherwise the base name without extension is returned.
func Label(path string, pattern *regexp.Regexp) string {
	base := filepath.Base(path)
	if pattern != nil {
		if m := pattern.FindStringSubmatch(base); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Loader reads emission files.
type Loader struct {
	// Log receives a summary of every file read. The standard logger
	// is used if it is nil.
	Log logrus.FieldLogger
}

// Load reads the emission samples in the file at path with a Loader
// that logs to the standard logger.
func Load(path string) (*hyperrf.SampleSet, error) {
	return (&Loader{}).Load(path)
}

// Load reads the emission samples in the file at path, choosing the reader
// by file extension. The ID of the returned SampleSet is set with
// Label and DefaultLabelPattern.
func (l *Loader) Load(path string) (*hyperrf.SampleSet, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		samples []hyperrf.Sample
		missing int
		err     error
	)
	switch ext {
	case ".csv":
		samples, err = readCSV(path)
	case ".shp":
		samples, err = readShapefile(path)
	case ".nc", ".ncf", ".nc4":
		samples, missing, err = readInventory(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}
	if err != nil {
		return nil, err
	}
	s := hyperrf.NewSampleSet(Label(path, DefaultLabelPattern), samples)
	log := l.log().WithField("file", path)
	if missing > 0 {
		log.WithField("values", humanize.Comma(int64(missing))).
			Warn("loader: skipped emission values equal to the fill value")
	}
	log.WithFields(logrus.Fields{
		"samples": humanize.Comma(int64(s.Len())),
		"H2O [t]": humanize.FormatFloat("#,###.##", s.TotalMass(hyperrf.H2O)/1000),
		"H2 [t]":  humanize.FormatFloat("#,###.##", s.TotalMass(hyperrf.H2)/1000),
		"NO [t]":  humanize.FormatFloat("#,###.##", s.TotalMass(hyperrf.NO)/1000),
	}).Debug("loader: read emissions")
	return s, nil
}

func (l *Loader) log() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// feetToKm converts an altitude in feet to km.
func feetToKm(ft float64) float64 { return ft * 0.3048 / 1000 }
