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

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

// hdf is a Dataset backed by a NetCDF-4 (HDF5) file.
type hdf struct {
	path string
	g    api.Group
}

func openHDF(path string) (*hdf, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: opening NetCDF-4 file %s: %v", path, err)
	}
	return &hdf{path: path, g: g}, nil
}

func (h *hdf) Path() string { return h.path }

func (h *hdf) Dims() []string { return h.g.ListDimensions() }

func (h *hdf) DimLen(name string) (int, bool) {
	n, ok := h.g.GetDimension(name)
	return int(n), ok
}

func (h *hdf) Variables() []string { return h.g.ListVariables() }

func (h *hdf) getter(v string) (api.VarGetter, error) {
	vg, err := h.g.GetVarGetter(v)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: variable %s in %s: %v", v, h.path, err)
	}
	return vg, nil
}

func (h *hdf) VarDims(v string) ([]string, error) {
	vg, err := h.getter(v)
	if err != nil {
		return nil, err
	}
	return vg.Dimensions(), nil
}

func (h *hdf) Attribute(v, a string) (interface{}, bool) {
	var attrs api.AttributeMap
	if v == "" {
		attrs = h.g.Attributes()
	} else {
		vg, err := h.g.GetVarGetter(v)
		if err != nil {
			return nil, false
		}
		attrs = vg.Attributes()
	}
	if attrs == nil {
		return nil, false
	}
	return attrs.Get(a)
}

// shape returns the dimension lengths of variable v.
func (h *hdf) shape(vg api.VarGetter) ([]int, error) {
	dims := vg.Dimensions()
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, ok := h.g.GetDimension(d)
		if !ok {
			return nil, fmt.Errorf("ncmagics: dimension %s not in %s", d, h.path)
		}
		shape[i] = int(n)
	}
	return shape, nil
}

func (h *hdf) ReadAll(v string) (*sparse.DenseArray, error) {
	vg, err := h.getter(v)
	if err != nil {
		return nil, err
	}
	shape, err := h.shape(vg)
	if err != nil {
		return nil, err
	}
	vals, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("ncmagics: reading variable %s from %s: %v", v, h.path, err)
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	return denseFrom(vals, shape)
}

func (h *hdf) ReadSlab(v string, i int) (*sparse.DenseArray, error) {
	vg, err := h.getter(v)
	if err != nil {
		return nil, err
	}
	shape, err := h.shape(vg)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("ncmagics: variable %s in %s is a scalar", v, h.path)
	}
	if i < 0 || i >= shape[0] {
		return nil, fmt.Errorf("ncmagics: index %d out of range for variable %s (length %d) in %s",
			i, v, shape[0], h.path)
	}
	vals, err := vg.GetSlice(int64(i), int64(i+1))
	if err != nil {
		return nil, fmt.Errorf("ncmagics: reading variable %s index %d from %s: %v", v, i, h.path, err)
	}
	inner := shape[1:]
	if len(inner) == 0 {
		inner = []int{1}
	}
	return denseFrom(vals, inner)
}

func (h *hdf) Close() error {
	h.g.Close()
	return nil
}
