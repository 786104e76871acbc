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

package ncmagics

import (
	"fmt"
	"io"
	"math"
	"os"
	"reflect"

	"github.com/ctessum/cdf"
)

// WriteAverage writes a copy of the NetCDF classic file base to out in
// which each variable in vars is replaced by the average of that variable
// in files prev and next. All dimensions, attributes and other variables
// of base are kept. out may be the same file as base. Cells that hold the
// _FillValue or missing_value of either input are written as the fill
// value of base.
func WriteAverage(prev, next, base, out string, vars []string) error {
	ds, err := Open(base)
	if err != nil {
		return err
	}
	defer ds.Close()
	src, ok := ds.(*classic)
	if !ok {
		return fmt.Errorf("ncmagics: averaging requires a NetCDF classic file but %s is NetCDF-4", base)
	}

	avg := make(map[string][]float64)
	for _, v := range vars {
		a, fillA, err := readVar(prev, v)
		if err != nil {
			return err
		}
		b, fillB, err := readVar(next, v)
		if err != nil {
			return err
		}
		fill, hasFill := fillValue(src, v)
		shape, err := src.shape(v)
		if err != nil {
			return err
		}
		n := 1
		for _, l := range shape {
			n *= l
		}
		if len(a) != n || len(b) != n {
			return fmt.Errorf("ncmagics: variable %s has %d values in %s, %d in %s and %d in %s",
				v, n, base, len(a), prev, len(b), next)
		}
		mean := make([]float64, n)
		for i := range mean {
			switch {
			case isFill(a[i], fillA):
				mean[i] = a[i]
				if hasFill {
					mean[i] = fill
				}
			case isFill(b[i], fillB):
				mean[i] = b[i]
				if hasFill {
					mean[i] = fill
				}
			default:
				mean[i] = (a[i] + b[i]) / 2
			}
		}
		avg[v] = mean
	}

	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("ncmagics: creating %s: %v", tmp, err)
	}
	if err := copyAverage(src, f, avg); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, out)
}

// readVar returns the stored values of v in path and the fill values
// declared for it.
func readVar(path, v string) ([]float64, []float64, error) {
	ds, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer ds.Close()
	a, err := ds.ReadAll(v)
	if err != nil {
		return nil, nil, err
	}
	return a.Elements, fills(ds, v), nil
}

func fills(ds Dataset, v string) []float64 {
	var o []float64
	for _, attr := range []string{"_FillValue", "missing_value"} {
		if a, ok := ds.Attribute(v, attr); ok {
			if f, err := toFloats(a); err == nil {
				o = append(o, f...)
			}
		}
	}
	return o
}

// fillValue is the value written for v where either input is missing.
func fillValue(ds Dataset, v string) (float64, bool) {
	if f := fills(ds, v); len(f) > 0 {
		return f[0], true
	}
	return 0, false
}

func isFill(v float64, fills []float64) bool {
	if math.IsNaN(v) {
		return true
	}
	for _, f := range fills {
		if v == f || float32(v) == float32(f) {
			return true
		}
	}
	return false
}

// copyAverage writes the header and data of src to f, substituting the
// values in avg.
func copyAverage(src *classic, f *os.File, avg map[string][]float64) error {
	h := src.ff.Header
	nh := cdf.NewHeader(h.Dimensions(""), h.Lengths(""))
	for _, a := range h.Attributes("") {
		nh.AddAttribute("", a, h.GetAttribute("", a))
	}
	for _, v := range h.Variables() {
		nh.AddVariable(v, h.Dimensions(v), h.ZeroValue(v, 0))
		for _, a := range h.Attributes(v) {
			nh.AddAttribute(v, a, h.GetAttribute(v, a))
		}
	}
	nh.Define()
	dst, err := cdf.Create(f, nh)
	if err != nil {
		return fmt.Errorf("ncmagics: writing header to %s: %v", f.Name(), err)
	}
	for _, v := range h.Variables() {
		data, err := src.raw(v)
		if err != nil {
			return err
		}
		if a, ok := avg[v]; ok {
			if data, err = convertTo(a, data); err != nil {
				return fmt.Errorf("ncmagics: variable %s: %v", v, err)
			}
		}
		if reflect.ValueOf(data).Len() == 0 {
			continue
		}
		w := dst.Writer(v, nil, nil)
		if _, err := w.Write(data); err != nil && err != io.EOF {
			return fmt.Errorf("ncmagics: writing variable %s to %s: %v", v, f.Name(), err)
		}
	}
	if err := padRecords(src, f, nh); err != nil {
		return err
	}
	return cdf.UpdateNumRecs(f)
}

// padRecords extends f to a whole number of records when the last record
// variable ends before its 4-byte padding.
func padRecords(src *classic, f *os.File, h *cdf.Header) error {
	var nrec int64
	dims := h.Dimensions("")
	for i, l := range h.Lengths("") {
		if l == 0 {
			n, _ := src.DimLen(dims[i])
			nrec = int64(n)
		}
	}
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	for pad := int64(0); pad < 4; pad++ {
		if h.NumRecs(fi.Size()+pad) < nrec {
			continue
		}
		if pad == 0 {
			return nil
		}
		return f.Truncate(fi.Size() + pad)
	}
	return nil
}

// raw reads all values of variable v in their stored type.
func (c *classic) raw(v string) (interface{}, error) {
	if !c.ff.Header.IsRecordVariable(v) {
		r := c.ff.Reader(v, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("ncmagics: reading variable %s from %s: %v", v, c.path, err)
		}
		return buf, nil
	}
	shape, err := c.shape(v)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, l := range shape[1:] {
		n *= l
	}
	var out reflect.Value
	for i := 0; i < shape[0]; i++ {
		begin, end := make([]int, len(shape)), make([]int, len(shape))
		begin[0], end[0] = i, i
		for j, l := range shape[1:] {
			end[j+1] = l - 1
		}
		r := c.ff.Reader(v, begin, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("ncmagics: reading variable %s record %d from %s: %v", v, i, c.path, err)
		}
		if i == 0 {
			out = reflect.ValueOf(buf)
		} else {
			out = reflect.AppendSlice(out, reflect.ValueOf(buf))
		}
	}
	if !out.IsValid() {
		return c.ff.Reader(v, nil, nil).Zero(0), nil
	}
	return out.Interface(), nil
}

// convertTo converts vals to the type of sample, rounding for integer types.
func convertTo(vals []float64, sample interface{}) (interface{}, error) {
	switch sample.(type) {
	case []float64:
		return vals, nil
	case []float32:
		o := make([]float32, len(vals))
		for i, v := range vals {
			o[i] = float32(v)
		}
		return o, nil
	case []int32:
		o := make([]int32, len(vals))
		for i, v := range vals {
			o[i] = int32(math.Round(v))
		}
		return o, nil
	case []int16:
		o := make([]int16, len(vals))
		for i, v := range vals {
			o[i] = int16(math.Round(v))
		}
		return o, nil
	case []uint8:
		o := make([]uint8, len(vals))
		for i, v := range vals {
			o[i] = uint8(math.Round(v))
		}
		return o, nil
	}
	return nil, fmt.Errorf("cannot average values of type %T", sample)
}
