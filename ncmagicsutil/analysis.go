/*
Copyright © 2021 the NcMagics authors.
This file is part of NcMagics.

NcMagics is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

NcMagics is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with NcMagics.  If not, see <http://www.gnu.org/licenses/>.
*/

package ncmagicsutil

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ncmagics"
	"github.com/spatialmodel/ncmagics/mapplot"
	"github.com/tealeg/xlsx"
)

// NoLevel selects a variable without a vertical axis in Stats, Expr and
// Export.
const NoLevel = 0

// readField reads variable at level, or the whole variable for NoLevel,
// and checks that the result is a single horizontal field.
func readField(r *ncmagics.Reader, variable string, level int) (*sparse.DenseArray, error) {
	var a *sparse.DenseArray
	var err error
	if level == NoLevel {
		a, err = r.Parameter(variable)
	} else {
		a, err = r.ParameterAt(variable, level)
	}
	if err != nil {
		return nil, err
	}
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("ncmagics: %s has levels %v; choose one", variable, r.Levels())
	}
	return a, nil
}

// Summary holds statistics of a field.
type Summary struct {
	Variable string
	Level    int

	// N is the number of cells that are not NaN.
	N int

	Min, Max, Mean, StdDev float64
}

func (s Summary) String() string {
	level := "-"
	if s.Level != NoLevel {
		level = strconv.Itoa(s.Level)
	}
	return fmt.Sprintf("variable\tlevel\tn\tmin\tmax\tmean\tstddev\n%s\t%s\t%d\t%g\t%g\t%g\t%g",
		s.Variable, level, s.N, s.Min, s.Max, s.Mean, s.StdDev)
}

// Stats summarizes variable at level within the bounds of s.
func Stats(s *Settings, file, variable string, level int) (*Summary, error) {
	r, err := s.reader(file, s.Bounds)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	a, err := readField(r, variable, level)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, 0, len(a.Elements))
	for _, v := range a.Elements {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	o := &Summary{Variable: variable, Level: level, N: len(vals)}
	if len(vals) == 0 {
		return nil, fmt.Errorf("ncmagics: %s has no values within %s", variable, s.Bounds)
	}
	o.Min = stats.StatsMin(vals)
	o.Max = stats.StatsMax(vals)
	o.Mean = stats.StatsMean(vals)
	if len(vals) > 1 {
		o.StdDev = stats.StatsSampleStandardDeviation(vals)
	}
	return o, nil
}

// exprFunctions are the functions available to Expr.
var exprFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unary("exp", math.Exp),
	"log":  unary("log", math.Log),
	"sqrt": unary("sqrt", math.Sqrt),
	"abs":  unary("abs", math.Abs),
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("ncmagics: got %d arguments for function 'pow', but needs 2", len(args))
		}
		x, ok0 := args[0].(float64)
		y, ok1 := args[1].(float64)
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("ncmagics: the arguments of 'pow' must be numbers")
		}
		return math.Pow(x, y), nil
	},
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("ncmagics: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("ncmagics: the argument of '%s' must be a number", name)
		}
		return f(x), nil
	}
}

// Evaluate calculates expression in each cell of the fields of r, whose
// variables are read at level. Boolean results are 1 or NaN, so that
// comparisons can be used as masks.
func Evaluate(r *ncmagics.Reader, expression string, level int) (*sparse.DenseArray, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(expression, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: parsing expression: %v", err)
	}
	names := unique(expr.Vars())
	if len(names) == 0 {
		return nil, fmt.Errorf("ncmagics: expression %q uses no variables", expression)
	}
	vars := make(map[string]*sparse.DenseArray, len(names))
	for _, n := range names {
		if vars[n], err = readField(r, n, level); err != nil {
			return nil, err
		}
	}
	out := sparse.ZerosDense(vars[names[0]].Shape...)
	params := make(map[string]interface{}, len(names))
	for i := range out.Elements {
		for _, n := range names {
			params[n] = vars[n].Elements[i]
		}
		v, err := expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("ncmagics: evaluating %q: %v", expression, err)
		}
		switch t := v.(type) {
		case float64:
			out.Elements[i] = t
		case bool:
			out.Elements[i] = math.NaN()
			if t {
				out.Elements[i] = 1
			}
		default:
			return nil, fmt.Errorf("ncmagics: expression %q gives %T, not a number", expression, v)
		}
	}
	return out, nil
}

func unique(s []string) []string {
	seen := make(map[string]bool, len(s))
	var o []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			o = append(o, v)
		}
	}
	return o
}

// Expr shades the value of expression, a formula of the variables in
// file such as "sqrt(u**2 + v**2)", at level. The colour bar spans the
// range of the result.
func Expr(s *Settings, file, expression string, level int, label string) (string, error) {
	r, lat, lon, name, err := s.open(file)
	if err != nil {
		return "", err
	}
	defer r.Close()
	z, err := Evaluate(r, expression, level)
	if err != nil {
		return "", err
	}
	if label == "" {
		label = expression
	}
	m, err := s.japanMap()
	if err != nil {
		return "", err
	}
	if err := m.Shade(lon, lat, z, mapplot.ShadeOptions{Label: label, Auto: true}); err != nil {
		return "", err
	}
	title := ""
	if level != NoLevel {
		title = levelTitle(level)
	}
	return s.save(m, name+"expr", title)
}

// Export writes variable at level within the bounds of s, one row per
// cell with its latitude and longitude, to output. The format is chosen
// by the extension of output: ".xlsx" or ".csv".
func Export(s *Settings, file, variable string, level int, output string) error {
	r, err := s.reader(file, s.Bounds)
	if err != nil {
		return err
	}
	defer r.Close()
	lat, lon, err := r.LatLon()
	if err != nil {
		return err
	}
	a, err := readField(r, variable, level)
	if err != nil {
		return err
	}
	header := []string{"latitude", "longitude", variable}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".xlsx":
		err = exportXLSX(output, header, lat, lon, a)
	case ".csv":
		err = exportCSV(output, header, lat, lon, a)
	default:
		return fmt.Errorf("ncmagics: unsupported export format %q; use .xlsx or .csv", filepath.Ext(output))
	}
	if err != nil {
		return err
	}
	s.Log.WithField("output", output).Info("exported field")
	return nil
}

func exportXLSX(path string, header []string, lat, lon []float64, a *sparse.DenseArray) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(header[2])
	if err != nil {
		return fmt.Errorf("ncmagics: exporting: %v", err)
	}
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	for j, y := range lat {
		for i, x := range lon {
			row := sheet.AddRow()
			row.AddCell().SetFloat(y)
			row.AddCell().SetFloat(x)
			if v := a.Get(j, i); !math.IsNaN(v) {
				row.AddCell().SetFloat(v)
			}
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("ncmagics: exporting: %v", err)
	}
	return nil
}

func exportCSV(path string, header []string, lat, lon []float64, a *sparse.DenseArray) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ncmagics: exporting: %v", err)
	}
	w := csv.NewWriter(f)
	w.Write(header)
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for j, y := range lat {
		for i, x := range lon {
			w.Write([]string{format(y), format(x), format(a.Get(j, i))})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("ncmagics: exporting: %v", err)
	}
	return f.Close()
}
