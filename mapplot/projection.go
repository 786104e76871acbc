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
	"math"

	"github.com/spatialmodel/ncmagics"
)

// A Projection maps longitude and latitude in degrees to plane map
// coordinates.
type Projection interface {
	// Project returns the map coordinates of a point and whether the
	// point is visible.
	Project(lon, lat float64) (x, y float64, ok bool)

	// Extent returns the limits of the map in map coordinates.
	Extent() (xmin, xmax, ymin, ymax float64)

	// Rectilinear reports whether lines of constant longitude and
	// latitude are straight and parallel to the map edges.
	Rectilinear() bool
}

// Equirectangular draws longitude as x and latitude as y within Bounds.
type Equirectangular struct {
	Bounds ncmagics.Bounds
}

// Project implements Projection.
func (e Equirectangular) Project(lon, lat float64) (x, y float64, ok bool) {
	return lon, lat, true
}

// Extent implements Projection.
func (e Equirectangular) Extent() (xmin, xmax, ymin, ymax float64) {
	return e.Bounds.West, e.Bounds.East, e.Bounds.South, e.Bounds.North
}

// Rectilinear implements Projection.
func (e Equirectangular) Rectilinear() bool { return true }

// Orthographic is a view of the northern hemisphere from above the north
// pole, on a sphere of unit radius. CentralLon points straight down the
// map.
type Orthographic struct {
	CentralLon float64
}

// NorthPolar is the hemisphere view with 90°E at the bottom, which puts
// Japan in the lower half of the map.
var NorthPolar = Orthographic{CentralLon: 90}

// Project implements Projection.
func (o Orthographic) Project(lon, lat float64) (x, y float64, ok bool) {
	φ := lat * math.Pi / 180
	λ := (lon - o.CentralLon) * math.Pi / 180
	x = math.Cos(φ) * math.Sin(λ)
	y = -math.Cos(φ) * math.Cos(λ)
	return x, y, lat >= 0
}

// Extent implements Projection.
func (o Orthographic) Extent() (xmin, xmax, ymin, ymax float64) {
	return -1, 1, -1, 1
}

// Rectilinear implements Projection.
func (o Orthographic) Rectilinear() bool { return false }
