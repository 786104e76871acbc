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

// Package ncmagics reads gridded numerical weather prediction output stored
// in NetCDF files, discovers the grid axes and vertical levels from the file
// metadata, and crops fields to a geographic window such as the area around
// Japan.
package ncmagics

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Version is the version of this software.
const Version = "0.1.0"

var (
	// ErrUnknownLevel is returned when a requested vertical level is not
	// one of the levels in the file.
	ErrUnknownLevel = errors.New("ncmagics: unknown vertical level")

	// ErrGridMismatch is returned when a file with a different horizontal
	// grid is swapped into a Reader.
	ErrGridMismatch = errors.New("ncmagics: horizontal grid does not match")

	// ErrNoTimeStamp is returned when a file name does not contain a
	// YYYY-MM-DD_HH time stamp.
	ErrNoTimeStamp = errors.New("ncmagics: file name does not contain a time stamp")
)

// Bounds is a latitude-longitude window in degrees. All four edges
// are inclusive.
type Bounds struct {
	South float64 `validate:"gte=-90,lte=90"`
	North float64 `validate:"gte=-90,lte=90,gtfield=South"`
	West  float64 `validate:"gte=-180,lte=360"`
	East  float64 `validate:"gte=-180,lte=360,gtfield=West"`
}

// JapanBounds is the window around Japan that the map products are drawn for.
var JapanBounds = Bounds{South: 20, North: 60, West: 110, East: 180}

// NorthernHemisphere covers the whole northern hemisphere for grids stored
// with either -180..180 or 0..360 longitudes.
var NorthernHemisphere = Bounds{South: 0, North: 90, West: -180, East: 360}

var validate = validator.New()

// Validate checks that b describes a valid window.
func (b Bounds) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("ncmagics: invalid bounds %+v: %v", b, err)
	}
	return nil
}

// containsLat reports whether lat is within the window.
func (b Bounds) containsLat(lat float64) bool {
	return lat >= b.South && lat <= b.North
}

// containsLon reports whether lon is within the window.
func (b Bounds) containsLon(lon float64) bool {
	return lon >= b.West && lon <= b.East
}

func (b Bounds) String() string {
	return fmt.Sprintf("lat %g..%g, lon %g..%g", b.South, b.North, b.West, b.East)
}
