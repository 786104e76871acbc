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
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Dataset is an open NetCDF file.
type Dataset interface {
	// Path returns the location the file was opened from.
	Path() string

	// Dims returns the names of all dimensions in the file.
	Dims() []string

	// DimLen returns the length of the named dimension. For the record
	// dimension the number of records is returned.
	DimLen(name string) (int, bool)

	// Variables returns the names of all variables in the file.
	Variables() []string

	// VarDims returns the dimension names of variable v.
	VarDims(v string) ([]string, error)

	// Attribute returns attribute a of variable v, or the global attribute a
	// if v is the empty string. The returned value is a string or a slice of
	// numbers.
	Attribute(v, a string) (interface{}, bool)

	// ReadAll reads all values of variable v.
	ReadAll(v string) (*sparse.DenseArray, error)

	// ReadSlab reads index i along the outermost dimension of variable v.
	// The outermost dimension is dropped from the returned array.
	ReadSlab(v string, i int) (*sparse.DenseArray, error)

	Close() error
}

// Open opens the NetCDF file at path. NetCDF classic files are read with
// the cdf package and NetCDF-4 (HDF5) files with go-native-netcdf.
func Open(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: opening %s: %v", path, err)
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("ncmagics: reading format of %s: %v", path, err)
	}
	switch {
	case bytes.HasPrefix(magic, []byte("CDF")):
		return openClassic(path, f)
	case bytes.Equal(magic, []byte("\x89HDF")):
		f.Close()
		return openHDF(path)
	default:
		f.Close()
		return nil, fmt.Errorf("ncmagics: %s is not a NetCDF file", path)
	}
}

// classic is a Dataset backed by a NetCDF classic format file.
type classic struct {
	path string
	f    *os.File
	ff   *cdf.File
}

func openClassic(path string, f *os.File) (*classic, error) {
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ncmagics: reading header of %s: %v", path, err)
	}
	return &classic{path: path, f: f, ff: ff}, nil
}

func (c *classic) Path() string { return c.path }

func (c *classic) Dims() []string { return c.ff.Header.Dimensions("") }

func (c *classic) DimLen(name string) (int, bool) {
	dims := c.ff.Header.Dimensions("")
	lengths := c.ff.Header.Lengths("")
	for i, d := range dims {
		if d != name {
			continue
		}
		if lengths[i] == 0 {
			fi, err := c.f.Stat()
			if err != nil {
				return 0, false
			}
			return int(c.ff.Header.NumRecs(fi.Size())), true
		}
		return lengths[i], true
	}
	return 0, false
}

func (c *classic) Variables() []string { return c.ff.Header.Variables() }

func (c *classic) VarDims(v string) ([]string, error) {
	dims := c.ff.Header.Dimensions(v)
	if dims == nil {
		return nil, fmt.Errorf("ncmagics: variable %s not in %s", v, c.path)
	}
	return dims, nil
}

func (c *classic) Attribute(v, a string) (interface{}, bool) {
	val := c.ff.Header.GetAttribute(v, a)
	return val, val != nil
}

// shape returns the lengths of the dimensions of v, with the number of
// records substituted for the record dimension.
func (c *classic) shape(v string) ([]int, error) {
	lengths := c.ff.Header.Lengths(v)
	if lengths == nil {
		return nil, fmt.Errorf("ncmagics: variable %s not in %s", v, c.path)
	}
	shape := append([]int{}, lengths...)
	if c.ff.Header.IsRecordVariable(v) {
		dims := c.ff.Header.Dimensions(v)
		n, ok := c.DimLen(dims[0])
		if !ok {
			return nil, fmt.Errorf("ncmagics: counting records of %s in %s", v, c.path)
		}
		shape[0] = n
	}
	return shape, nil
}

func (c *classic) ReadAll(v string) (*sparse.DenseArray, error) {
	shape, err := c.shape(v)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("ncmagics: variable %s in %s is a scalar", v, c.path)
	}
	if c.ff.Header.IsRecordVariable(v) {
		// Record variables are read one record at a time.
		out := sparse.ZerosDense(shape...)
		n := len(out.Elements) / max(shape[0], 1)
		for i := 0; i < shape[0]; i++ {
			slab, err := c.ReadSlab(v, i)
			if err != nil {
				return nil, err
			}
			copy(out.Elements[i*n:(i+1)*n], slab.Elements)
		}
		return out, nil
	}
	r := c.ff.Reader(v, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncmagics: reading variable %s from %s: %v", v, c.path, err)
	}
	return denseFrom(buf, shape)
}

func (c *classic) ReadSlab(v string, i int) (*sparse.DenseArray, error) {
	shape, err := c.shape(v)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("ncmagics: variable %s in %s is a scalar", v, c.path)
	}
	if i < 0 || i >= shape[0] {
		return nil, fmt.Errorf("ncmagics: index %d out of range for variable %s (length %d) in %s",
			i, v, shape[0], c.path)
	}
	inner := shape[1:]
	nread := 1
	for _, l := range inner {
		nread *= l
	}
	begin, end := make([]int, len(shape)), make([]int, len(shape))
	begin[0], end[0] = i, i
	for j, l := range inner {
		end[j+1] = l - 1
	}
	r := c.ff.Reader(v, begin, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncmagics: reading variable %s index %d from %s: %v", v, i, c.path, err)
	}
	if len(inner) == 0 {
		inner = []int{1}
	}
	return denseFrom(buf, inner)
}

func (c *classic) Close() error { return c.f.Close() }

// denseFrom copies a flat slice of numbers into a new array with the given shape.
func denseFrom(buf interface{}, shape []int) (*sparse.DenseArray, error) {
	vals, err := toFloats(buf)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(shape...)
	if len(vals) != len(out.Elements) {
		return nil, fmt.Errorf("ncmagics: read %d values for shape %v", len(vals), shape)
	}
	copy(out.Elements, vals)
	return out, nil
}

// toFloats flattens a number or an arbitrarily nested slice of numbers
// into a []float64.
func toFloats(v interface{}) ([]float64, error) {
	switch t := v.(type) {
	case []float64:
		return append([]float64{}, t...), nil
	case []float32:
		o := make([]float64, len(t))
		for i, x := range t {
			o[i] = float64(x)
		}
		return o, nil
	}
	var out []float64
	var walk func(rv reflect.Value) error
	walk = func(rv reflect.Value) error {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if err := walk(rv.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			out = append(out, rv.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(rv.Uint()))
		case reflect.Interface:
			return walk(rv.Elem())
		default:
			return fmt.Errorf("ncmagics: cannot convert %s to numbers", rv.Type())
		}
		return nil
	}
	if err := walk(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return out, nil
}
