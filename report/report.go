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

// Package report lays out radiative forcing results as a table with one
// row per emission file and writes it as an Excel workbook, CSV, YAML or
// plain text.
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/Knetic/govaluate"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/hyperrf"
)

// Column names.
const (
	IDColumn          = "Trajectory"
	RFColumn          = "RF [mW m-2]"
	H2ORFColumn       = "H2O RF [mW m-2]"
	O3RFColumn        = "O3 RF [mW m-2]"
	H2ORFFromH2Column = "H2O RF from H2 [mW m-2]"
)

// SheetName is the name of the worksheet holding the results.
const SheetName = "Radiative Forcing"

// emissionColumn returns the name of the emitted mass column of sp.
func emissionColumn(sp hyperrf.Species) string {
	return fmt.Sprintf("%v [t]", sp)
}

// Options specify the columns of a Table.
type Options struct {
	// IncludeEmissions adds the emitted mass of each species [t].
	IncludeEmissions bool

	// IncludeH2ORFFromH2 adds the water vapour forcing from hydrogen
	// emission, whether or not it is part of the total.
	IncludeH2ORFFromH2 bool

	// OutputVariables maps the names of additional columns to
	// expressions of the result variables, e.g.
	// {"O3 share": "TotalO3RF / TotalRF"}. The result variables are
	// TotalRF, TotalH2ORF, TotalO3RF, H2ORFFromH2, Samples, the
	// species masses H2O, H2 and NO [t], and the pair totals
	// H2OFromH2O, O3FromH2O, O3FromH2, O3FromNO and H2OFromH2.
	OutputVariables map[string]string

	// OutputFunctions are made available to the expressions in
	// addition to the default functions exp, log, abs and sqrt.
	OutputFunctions map[string]govaluate.ExpressionFunction

	// Log receives warnings about expressions that cannot be
	// evaluated. The standard logger is used if it is nil.
	Log logrus.FieldLogger
}

// Table holds the report values. Values[i][j] is the value of
// Columns[j] for the emission file IDs[i].
type Table struct {
	Columns []string
	IDs     []string
	Values  [][]float64
}

// pairVariable returns the expression variable name of p,
// e.g. "O3FromNO".
func pairVariable(p hyperrf.Pair) string {
	return fmt.Sprintf("%vFrom%v", p.Effect, p.Species)
}

// variables returns the expression variables of r.
func variables(r *hyperrf.RFResult) map[string]interface{} {
	v := map[string]interface{}{
		"TotalRF":     r.TotalRF,
		"TotalH2ORF":  r.TotalH2ORF,
		"TotalO3RF":   r.TotalO3RF,
		"H2ORFFromH2": r.H2ORFFromH2,
		"Samples":     float64(r.Samples),
	}
	for _, sp := range hyperrf.AllSpecies {
		v[sp.String()] = r.Emissions[sp]
	}
	for _, p := range append(append([]hyperrf.Pair(nil), hyperrf.CorePairs...), hyperrf.H2OFromH2) {
		v[pairVariable(p)] = r.Pairs[p]
	}
	return v
}

func defaultFunctions() map[string]govaluate.ExpressionFunction {
	unary := func(name string, f func(float64) float64) govaluate.ExpressionFunction {
		return func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("report: got %d arguments for function '%s', but needs 1", len(args), name)
			}
			x, ok := args[0].(float64)
			if !ok {
				return nil, fmt.Errorf("report: function '%s' needs a number, got %T", name, args[0])
			}
			return f(x), nil
		}
	}
	return map[string]govaluate.ExpressionFunction{
		"exp":  unary("exp", math.Exp),
		"log":  unary("log", math.Log),
		"abs":  unary("abs", math.Abs),
		"sqrt": unary("sqrt", math.Sqrt),
	}
}

// derived is a compiled output variable.
type derived struct {
	name string
	expr *govaluate.EvaluableExpression
}

// compile parses the output variables and checks that they only
// refer to result variables.
func compile(o Options) ([]derived, error) {
	funcs := defaultFunctions()
	for k, f := range o.OutputFunctions {
		funcs[k] = f
	}
	known := variables(&hyperrf.RFResult{})
	names := make([]string, 0, len(o.OutputVariables))
	for name := range o.OutputVariables {
		names = append(names, name)
	}
	sort.Strings(names)

	d := make([]derived, len(names))
	for i, name := range names {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(o.OutputVariables[name], funcs)
		if err != nil {
			return nil, fmt.Errorf("report: output variable %q: %v", name, err)
		}
		for _, v := range expr.Vars() {
			if _, ok := known[v]; !ok {
				return nil, fmt.Errorf("report: output variable %q: undefined variable name '%s'", name, v)
			}
		}
		d[i] = derived{name: name, expr: expr}
	}
	return d, nil
}

func (o Options) log() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// New creates a Table with one row for each result.
func New(results []*hyperrf.RFResult, o Options) (*Table, error) {
	d, err := compile(o)
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: []string{RFColumn, H2ORFColumn, O3RFColumn}}
	if o.IncludeEmissions {
		for _, sp := range hyperrf.AllSpecies {
			t.Columns = append(t.Columns, emissionColumn(sp))
		}
	}
	if o.IncludeH2ORFFromH2 {
		t.Columns = append(t.Columns, H2ORFFromH2Column)
	}
	for _, dv := range d {
		t.Columns = append(t.Columns, dv.name)
	}

	for _, r := range results {
		row := []float64{r.TotalRF, r.TotalH2ORF, r.TotalO3RF}
		if o.IncludeEmissions {
			for _, sp := range hyperrf.AllSpecies {
				row = append(row, r.Emissions[sp])
			}
		}
		if o.IncludeH2ORFFromH2 {
			row = append(row, r.H2ORFFromH2)
		}
		if len(d) > 0 {
			vars := variables(r)
			log := o.log().WithField("id", r.ID)
			for _, dv := range d {
				row = append(row, evaluate(dv, vars, log))
			}
		}
		t.IDs = append(t.IDs, r.ID)
		t.Values = append(t.Values, row)
	}
	return t, nil
}

// evaluate returns the value of dv, or NaN if it cannot be evaluated
// to a number.
func evaluate(dv derived, vars map[string]interface{}, log logrus.FieldLogger) float64 {
	v, err := dv.expr.Evaluate(vars)
	if err != nil {
		log.WithField("variable", dv.name).Warnf("report: %v", err)
		return math.NaN()
	}
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		log.WithField("variable", dv.name).
			Warnf("report: expression result has type %T; want a number", v)
		return math.NaN()
	}
}

// Column returns the values of the named column, or false if there is
// no such column.
func (t *Table) Column(name string) ([]float64, bool) {
	for j, c := range t.Columns {
		if c == name {
			o := make([]float64, len(t.Values))
			for i, row := range t.Values {
				o[i] = row[j]
			}
			return o, true
		}
	}
	return nil, false
}

// Stat summarizes one column of a Table.
type Stat struct {
	Column string

	// N is the number of finite values.
	N int

	Mean, StdDev, Min, Max float64
}

// Summarize returns statistics of the finite values of every column.
// Statistics that are undefined for the number of values are NaN.
func (t *Table) Summarize() []Stat {
	o := make([]Stat, len(t.Columns))
	for j, name := range t.Columns {
		col, _ := t.Column(name)
		finite := col[:0]
		for _, v := range col {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
		s := Stat{Column: name, N: len(finite), Mean: math.NaN(), StdDev: math.NaN(), Min: math.NaN(), Max: math.NaN()}
		if s.N > 0 {
			s.Mean = stats.StatsMean(finite)
			s.Min = stats.StatsMin(finite)
			s.Max = stats.StatsMax(finite)
		}
		if s.N > 1 {
			s.StdDev = stats.StatsSampleStandardDeviation(finite)
		}
		o[j] = s
	}
	return o
}
