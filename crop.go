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
	"sync"

	"github.com/ctessum/sparse"
	"github.com/golang/groupcache/lru"
	"github.com/spatialmodel/ncmagics/internal/hash"
)

// Mask selects the grid cells inside a Bounds window.
type Mask struct {
	// LatIndex and LonIndex are the indices of the selected rows and
	// columns of the full grid, in file order.
	LatIndex, LonIndex []int
}

// NewMask creates the mask selecting the cells of the grid with
// coordinates lat and lon that fall within b.
func NewMask(lat, lon []float64, b Bounds) (*Mask, error) {
	m := new(Mask)
	for i, v := range lat {
		if b.containsLat(v) {
			m.LatIndex = append(m.LatIndex, i)
		}
	}
	for i, v := range lon {
		if b.containsLon(v) {
			m.LonIndex = append(m.LonIndex, i)
		}
	}
	if len(m.LatIndex) == 0 || len(m.LonIndex) == 0 {
		return nil, fmt.Errorf("ncmagics: no grid cells within %s", b)
	}
	return m, nil
}

// Shape returns the number of selected latitudes and longitudes.
func (m *Mask) Shape() (nlat, nlon int) { return len(m.LatIndex), len(m.LonIndex) }

// Apply crops a field whose last two dimensions are latitude and
// longitude. Any leading dimensions are kept.
func (m *Mask) Apply(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(a.Shape) < 2 {
		return nil, fmt.Errorf("ncmagics: cannot crop array with shape %v", a.Shape)
	}
	nd := len(a.Shape)
	ny, nx := a.Shape[nd-2], a.Shape[nd-1]
	if m.LatIndex[len(m.LatIndex)-1] >= ny || m.LonIndex[len(m.LonIndex)-1] >= nx {
		return nil, fmt.Errorf("ncmagics: crop mask does not fit array with shape %v", a.Shape)
	}
	outShape := append([]int{}, a.Shape[:nd-2]...)
	outShape = append(outShape, len(m.LatIndex), len(m.LonIndex))
	out := sparse.ZerosDense(outShape...)
	nplanes := 1
	for _, l := range a.Shape[:nd-2] {
		nplanes *= l
	}
	k := 0
	for p := 0; p < nplanes; p++ {
		base := p * ny * nx
		for _, j := range m.LatIndex {
			row := base + j*nx
			for _, i := range m.LonIndex {
				out.Elements[k] = a.Elements[row+i]
				k++
			}
		}
	}
	return out, nil
}

// crop returns the selected values of a coordinate array.
func crop(vals []float64, index []int) []float64 {
	o := make([]float64, len(index))
	for i, j := range index {
		o[i] = vals[j]
	}
	return o
}

type maskKey struct {
	Lat, Lon []float64
	Bounds   Bounds
}

// masks holds recently created masks so that readers of files on the same
// grid share them.
var masks = struct {
	sync.Mutex
	c *lru.Cache
}{c: lru.New(16)}

// cachedMask returns the mask for the given grid and bounds, creating it
// if it has not been created recently.
func cachedMask(lat, lon []float64, b Bounds) (*Mask, error) {
	key := hash.Hash(maskKey{Lat: lat, Lon: lon, Bounds: b})
	masks.Lock()
	defer masks.Unlock()
	if m, ok := masks.c.Get(key); ok {
		return m.(*Mask), nil
	}
	m, err := NewMask(lat, lon, b)
	if err != nil {
		return nil, err
	}
	masks.c.Add(key, m)
	return m, nil
}
