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

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/tealeg/xlsx"
	"gopkg.in/yaml.v3"
)

// SummarySheetName is the name of the worksheet holding the column
// statistics.
const SummarySheetName = "Summary"

// formatFull formats v with the precision needed to read it back exactly.
func formatFull(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Save writes t to path, choosing the format by file extension:
// .xlsx, .csv, .yaml or .yml, and plain text otherwise. A path of "-"
// writes plain text to standard output.
func (t *Table) Save(path string) error {
	if path == "-" {
		return t.WriteText(os.Stdout)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		f, err := t.excel(true)
		if err != nil {
			return err
		}
		return errors.Wrapf(f.Save(path), "report: saving %s", path)
	}
	w, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "report")
	}
	switch ext {
	case ".csv":
		err = t.WriteCSV(w)
	case ".yaml", ".yml":
		err = t.WriteYAML(w)
	default:
		err = t.WriteText(w)
	}
	if err != nil {
		w.Close()
		return err
	}
	return errors.Wrapf(w.Close(), "report: closing %s", path)
}

// WriteExcel writes t as an Excel workbook with the results in the
// sheet SheetName. If summary is true, column statistics are added in
// the sheet SummarySheetName.
func (t *Table) WriteExcel(w io.Writer, summary bool) error {
	f, err := t.excel(summary)
	if err != nil {
		return err
	}
	return errors.Wrap(f.Write(w), "report: writing Excel file")
}

func (t *Table) excel(summary bool) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, errors.Wrap(err, "report")
	}
	header := append([]string{IDColumn}, t.Columns...)
	width := make([]int, len(header))
	addString := func(row *xlsx.Row, j int, s string) {
		row.AddCell().SetString(s)
		if len(s) > width[j] {
			width[j] = len(s)
		}
	}
	addFloat := func(row *xlsx.Row, j int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			addString(row, j, formatFull(v))
			return
		}
		row.AddCell().SetFloat(v)
		if n := len(formatFull(v)); n > width[j] {
			width[j] = n
		}
	}

	row := sheet.AddRow()
	for j, h := range header {
		addString(row, j, h)
	}
	for i, id := range t.IDs {
		row := sheet.AddRow()
		addString(row, 0, id)
		for j, v := range t.Values[i] {
			addFloat(row, j+1, v)
		}
	}
	for j, wd := range width {
		if err := sheet.SetColWidth(j, j, float64(wd)); err != nil {
			return nil, errors.Wrap(err, "report")
		}
	}

	if !summary {
		return f, nil
	}
	sheet, err = f.AddSheet(SummarySheetName)
	if err != nil {
		return nil, errors.Wrap(err, "report")
	}
	header = []string{"Column", "N", "Mean", "Std. dev.", "Min", "Max"}
	width = make([]int, len(header))
	row = sheet.AddRow()
	for j, h := range header {
		addString(row, j, h)
	}
	for _, s := range t.Summarize() {
		row := sheet.AddRow()
		addString(row, 0, s.Column)
		addFloat(row, 1, float64(s.N))
		for j, v := range []float64{s.Mean, s.StdDev, s.Min, s.Max} {
			addFloat(row, j+2, v)
		}
	}
	for j, wd := range width {
		if err := sheet.SetColWidth(j, j, float64(wd)); err != nil {
			return nil, errors.Wrap(err, "report")
		}
	}
	return f, nil
}

// WriteCSV writes t as comma separated values with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	c := csv.NewWriter(w)
	if err := c.Write(append([]string{IDColumn}, t.Columns...)); err != nil {
		return errors.Wrap(err, "report")
	}
	for i, id := range t.IDs {
		rec := make([]string, 0, len(t.Columns)+1)
		rec = append(rec, id)
		for _, v := range t.Values[i] {
			rec = append(rec, formatFull(v))
		}
		if err := c.Write(rec); err != nil {
			return errors.Wrap(err, "report")
		}
	}
	c.Flush()
	return errors.Wrap(c.Error(), "report")
}

// WriteText writes t as a plain text table with the column means in
// the footer.
func (t *Table) WriteText(w io.Writer) error {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetHeader(append([]string{IDColumn}, t.Columns...))
	for i, id := range t.IDs {
		rec := []string{id}
		for _, v := range t.Values[i] {
			rec = append(rec, fmt.Sprintf("%.6g", v))
		}
		tw.Append(rec)
	}
	if len(t.IDs) > 1 {
		footer := []string{"Mean"}
		for _, s := range t.Summarize() {
			footer = append(footer, fmt.Sprintf("%.6g", s.Mean))
		}
		tw.SetFooter(footer)
	}
	tw.Render()
	return nil
}

// WriteYAML writes t as a YAML sequence with one mapping per row, the
// keys in column order.
func (t *Table) WriteYAML(w io.Writer) error {
	scalar := func(tag, v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v}
	}
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for i, id := range t.IDs {
		m := &yaml.Node{Kind: yaml.MappingNode}
		m.Content = append(m.Content, scalar("!!str", IDColumn), scalar("!!str", id))
		for j, v := range t.Values[i] {
			m.Content = append(m.Content, scalar("!!str", t.Columns[j]), scalar("", yamlFloat(v)))
		}
		doc.Content = append(doc.Content, m)
	}
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(doc); err != nil {
		return errors.Wrap(err, "report: writing YAML")
	}
	return errors.Wrap(e.Close(), "report: writing YAML")
}

func yamlFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
