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

package hyperrfutil

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spatialmodel/hyperrf"
	"gopkg.in/yaml.v3"
)

// tableDoc is the YAML layout of a sensitivity table.
type tableDoc struct {
	Species  string    `yaml:"species"`
	Effect   string    `yaml:"effect"`
	Latitude []float64 `yaml:"latitude"`
	At30     []float64 `yaml:"at30km"`
	At38     []float64 `yaml:"at38km"`
}

// PrintTables writes the sensitivity tables to w in the given format,
// "text" or "yaml".
func PrintTables(w io.Writer, format string) error {
	tables := hyperrf.Tables()
	switch format {
	case "text", "":
		tw := tablewriter.NewWriter(w)
		tw.SetAutoFormatHeaders(false)
		header := []string{"Pair", "Altitude [km]"}
		for _, lat := range hyperrf.LatitudeNodes {
			header = append(header, strconv.FormatFloat(lat, 'g', -1, 64))
		}
		tw.SetHeader(header)
		for _, t := range tables {
			for _, alt := range []struct {
				km float64
				v  [hyperrf.NumNodes]float64
			}{{hyperrf.LowerAltitude, t.At30}, {hyperrf.UpperAltitude, t.At38}} {
				row := []string{t.Pair.String(), strconv.FormatFloat(alt.km, 'g', -1, 64)}
				for _, v := range alt.v {
					row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
				}
				tw.Append(row)
			}
		}
		tw.Render()
		return nil
	case "yaml":
		docs := make([]tableDoc, len(tables))
		for i, t := range tables {
			docs[i] = tableDoc{
				Species:  t.Species.String(),
				Effect:   t.Effect.String() + " RF",
				Latitude: hyperrf.LatitudeNodes[:],
				At30:     append([]float64(nil), t.At30[:]...),
				At38:     append([]float64(nil), t.At38[:]...),
			}
		}
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(docs); err != nil {
			return errors.Wrap(err, "hyperrf: writing tables")
		}
		return errors.Wrap(e.Close(), "hyperrf: writing tables")
	default:
		return fmt.Errorf("hyperrf: invalid tables format %q; use text or yaml", format)
	}
}
