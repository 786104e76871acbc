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
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/ncmagics/internal/hash"
)

// noLevel requests all vertical levels of a variable.
const noLevel = math.MinInt32

// Reader reads fields from a NetCDF file and crops them to a window.
// The crop mask is created on the first read and kept when another
// file is swapped in with SetFile, so a Reader can step through a
// series of files on the same grid.
type Reader struct {
	// Grid holds the axes of the current file.
	Grid *Grid

	// Bounds is the crop window.
	Bounds Bounds

	// CacheSize is the number of fields kept in memory. It must be
	// set before the first read.
	CacheSize int

	ds    Dataset
	mask  *Mask
	cache *requestcache.Cache
}

// NewReader opens the NetCDF file at path for reading fields within b.
func NewReader(path string, b Bounds) (*Reader, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	ds, err := Open(path)
	if err != nil {
		return nil, err
	}
	g, err := DiscoverGrid(ds)
	if err != nil {
		ds.Close()
		return nil, err
	}
	return &Reader{Grid: g, Bounds: b, CacheSize: 32, ds: ds}, nil
}

// Path returns the path of the current file.
func (r *Reader) Path() string { return r.ds.Path() }

// Dataset returns the current file.
func (r *Reader) Dataset() Dataset { return r.ds }

// Close closes the current file.
func (r *Reader) Close() error { return r.ds.Close() }

// Levels returns the vertical levels of the current file, surface first.
func (r *Reader) Levels() []int { return r.Grid.SortedLevels() }

// Mask returns the crop mask, creating it if necessary.
func (r *Reader) Mask() (*Mask, error) {
	if r.mask == nil {
		m, err := cachedMask(r.Grid.Lat, r.Grid.Lon, r.Bounds)
		if err != nil {
			return nil, err
		}
		r.mask = m
	}
	return r.mask, nil
}

// LatLon returns the latitudes and longitudes within the crop window.
func (r *Reader) LatLon() (lat, lon []float64, err error) {
	m, err := r.Mask()
	if err != nil {
		return nil, nil, err
	}
	return crop(r.Grid.Lat, m.LatIndex), crop(r.Grid.Lon, m.LonIndex), nil
}

// SetFile replaces the current file with the file at path. The crop
// mask is kept, so the new file must have the same horizontal grid.
func (r *Reader) SetFile(path string) error {
	if path == r.ds.Path() {
		return nil
	}
	ds, err := Open(path)
	if err != nil {
		return err
	}
	g, err := DiscoverGrid(ds)
	if err != nil {
		ds.Close()
		return err
	}
	if !r.Grid.sameHorizontal(g) {
		ds.Close()
		return fmt.Errorf("%w: %s is %dx%d, %s is %dx%d", ErrGridMismatch,
			r.ds.Path(), len(r.Grid.Lat), len(r.Grid.Lon), path, len(g.Lat), len(g.Lon))
	}
	r.ds.Close()
	r.ds = ds
	r.Grid = g
	return nil
}

// Parameter returns variable name cropped to the window. Variables with a
// vertical dimension have shape [level, lat, lon]; others have shape
// [lat, lon]. For any other leading dimension, such as time, the first
// index is used.
func (r *Reader) Parameter(name string) (*sparse.DenseArray, error) {
	return r.get(name, noLevel)
}

// ParameterAt returns variable name at the given vertical level, cropped
// to the window, with shape [lat, lon].
func (r *Reader) ParameterAt(name string, level int) (*sparse.DenseArray, error) {
	return r.get(name, level)
}

type fieldRequest struct {
	ds    Dataset
	grid  *Grid
	mask  *Mask
	name  string
	level int
}

func (r *Reader) get(name string, level int) (*sparse.DenseArray, error) {
	m, err := r.Mask()
	if err != nil {
		return nil, err
	}
	if r.cache == nil {
		r.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(fieldRequest)
			return readField(req.ds, req.grid, req.mask, req.name, req.level)
		}, 1, requestcache.Deduplicate(), requestcache.Memory(r.CacheSize))
	}
	req := r.cache.NewRequest(context.TODO(),
		fieldRequest{ds: r.ds, grid: r.Grid, mask: m, name: name, level: level},
		hash.Strings(r.ds.Path(), name, strconv.Itoa(level)),
	)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	// Cached fields are shared, so callers get a copy.
	return result.(*sparse.DenseArray).Copy(), nil
}

// readField reads variable name from ds, selects the first index of any
// non-spatial dimension and the requested level, unpacks the values and
// crops the result.
func readField(ds Dataset, g *Grid, m *Mask, name string, level int) (*sparse.DenseArray, error) {
	dims, err := ds.VarDims(name)
	if err != nil {
		return nil, err
	}
	nd := len(dims)
	if nd < 2 || dims[nd-2] != g.LatName || dims[nd-1] != g.LonName {
		return nil, fmt.Errorf("ncmagics: variable %s has dimensions %v; the last two must be %s and %s",
			name, dims, g.LatName, g.LonName)
	}
	var data *sparse.DenseArray
	if dims[0] != g.LevelName && dims[0] != g.LatName {
		if data, err = ds.ReadSlab(name, 0); err != nil {
			return nil, err
		}
		dims = dims[1:]
	} else if data, err = ds.ReadAll(name); err != nil {
		return nil, err
	}

	fixed := make([]int, len(dims))
	hasLevel := false
	for i, d := range dims {
		switch d {
		case g.LatName, g.LonName:
			fixed[i] = -1
		case g.LevelName:
			hasLevel = true
			fixed[i] = -1
			if level != noLevel {
				li, err := g.LevelIndex(level)
				if err != nil {
					return nil, fmt.Errorf("ncmagics: variable %s: %w", name, err)
				}
				fixed[i] = li
			}
		}
	}
	if level != noLevel && !hasLevel {
		return nil, fmt.Errorf("ncmagics: variable %s has no vertical dimension; cannot select level %d", name, level)
	}
	data = selectIndices(data, fixed)
	unpack(ds, name, data)
	return m.Apply(data)
}

// selectIndices returns the sub-array of a where each dimension i with
// fixed[i] >= 0 is held at that index and dropped. Dimensions with
// fixed[i] < 0 are kept.
func selectIndices(a *sparse.DenseArray, fixed []int) *sparse.DenseArray {
	var outShape []int
	for i, f := range fixed {
		if f < 0 {
			outShape = append(outShape, a.Shape[i])
		}
	}
	if len(outShape) == len(a.Shape) {
		return a
	}
	strides := make([]int, len(a.Shape))
	s := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= a.Shape[i]
	}
	out := sparse.ZerosDense(outShape...)
	idx := make([]int, len(outShape))
	for k := range out.Elements {
		// Convert k to a multi-index in the output.
		rem := k
		for j := len(outShape) - 1; j >= 0; j-- {
			idx[j] = rem % outShape[j]
			rem /= outShape[j]
		}
		src, j := 0, 0
		for i, f := range fixed {
			if f >= 0 {
				src += f * strides[i]
			} else {
				src += idx[j] * strides[i]
				j++
			}
		}
		out.Elements[k] = a.Elements[src]
	}
	return out
}

// unpack replaces fill values with NaN and applies the CF scale_factor
// and add_offset attributes.
func unpack(ds Dataset, name string, a *sparse.DenseArray) {
	fv := fills(ds, name)
	scale, offset := 1.0, 0.0
	if v, ok := ds.Attribute(name, "scale_factor"); ok {
		if f, err := toFloats(v); err == nil && len(f) > 0 {
			scale = f[0]
		}
	}
	if v, ok := ds.Attribute(name, "add_offset"); ok {
		if f, err := toFloats(v); err == nil && len(f) > 0 {
			offset = f[0]
		}
	}
	for i, v := range a.Elements {
		if isFill(v, fv) {
			a.Elements[i] = math.NaN()
			continue
		}
		a.Elements[i] = v*scale + offset
	}
}
