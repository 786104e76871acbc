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

package mapplot

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// field is a [lat, lon] array with its coordinates.
type field struct {
	lon, lat []float64
	z        *sparse.DenseArray

	// flipLat and flipLon are set when the coordinates decrease, so
	// that the grid seen by the plotters always increases.
	flipLat, flipLon bool
}

func newField(lon, lat []float64, z *sparse.DenseArray) (*field, error) {
	if len(z.Shape) != 2 || z.Shape[0] != len(lat) || z.Shape[1] != len(lon) {
		return nil, fmt.Errorf("mapplot: field shape %v does not match %d latitudes and %d longitudes",
			z.Shape, len(lat), len(lon))
	}
	if len(lat) < 2 || len(lon) < 2 {
		return nil, fmt.Errorf("mapplot: field must have at least 2 latitudes and 2 longitudes")
	}
	return &field{
		lon:     lon,
		lat:     lat,
		z:       z,
		flipLat: lat[0] > lat[len(lat)-1],
		flipLon: lon[0] > lon[len(lon)-1],
	}, nil
}

func (f *field) row(r int) int {
	if f.flipLat {
		return len(f.lat) - 1 - r
	}
	return r
}

func (f *field) col(c int) int {
	if f.flipLon {
		return len(f.lon) - 1 - c
	}
	return c
}

// Dims, Z, X and Y implement plotter.GridXYZ.
func (f *field) Dims() (c, r int) { return len(f.lon), len(f.lat) }
func (f *field) Z(c, r int) float64 { return f.z.Get(f.row(r), f.col(c)) }
func (f *field) X(c int) float64 { return f.lon[f.col(c)] }
func (f *field) Y(r int) float64 { return f.lat[f.row(r)] }

// finiteRange returns the smallest and largest values of f that are not
// NaN or infinite.
func (f *field) finiteRange() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range f.z.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max, !math.IsInf(min, 1)
}

// clamped presents a field to plotter.HeatMap with values outside
// [min, max] moved to the nearest limit, so that out-of-range cells take
// the end colours of the map. Missing values become -Inf, which the heat
// map leaves unfilled.
type clamped struct {
	*field
	min, max float64
}

func (c clamped) Z(col, row int) float64 {
	v := c.field.Z(col, row)
	switch {
	case math.IsNaN(v):
		return math.Inf(-1)
	case v < c.min:
		return c.min
	case v > c.max:
		return c.max
	}
	return v
}

// edges returns the n+1 cell boundaries of n cell centres, half way
// between neighbours and extended by half a cell at each end.
func edges(centres []float64) []float64 {
	n := len(centres)
	e := make([]float64, n+1)
	for i := 1; i < n; i++ {
		e[i] = (centres[i-1] + centres[i]) / 2
	}
	e[0] = centres[0] - (centres[1]-centres[0])/2
	e[n] = centres[n-1] + (centres[n-1]-centres[n-2])/2
	return e
}

// latEdges is edges limited to the valid range of latitude.
func latEdges(lat []float64) []float64 {
	e := edges(lat)
	for i, v := range e {
		e[i] = math.Max(-90, math.Min(90, v))
	}
	return e
}
