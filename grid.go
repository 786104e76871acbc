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
	"sort"
	"strconv"
	"strings"
)

// Grid holds the horizontal and vertical axes of a NetCDF file.
type Grid struct {
	// LatName, LonName and LevelName are the names of the latitude,
	// longitude and vertical level dimensions. LevelName is empty for
	// files without a vertical axis.
	LatName, LonName, LevelName string

	// Lat and Lon are the full (uncropped) coordinate values.
	Lat, Lon []float64

	// Levels are the vertical level values in file order.
	Levels []float64

	levelIndex map[string]int
}

// DiscoverGrid finds the latitude, longitude and vertical axes of ds.
// The coordinate variable of each dimension is checked for an "axis"
// attribute of "Y", "X" or "Z". Files without axis attributes are
// recognized by the CF standard_name or units of their coordinates.
func DiscoverGrid(ds Dataset) (*Grid, error) {
	g := new(Grid)
	for _, dim := range ds.Dims() {
		switch axisOf(ds, dim) {
		case "Y":
			g.LatName = dim
		case "X":
			g.LonName = dim
		case "Z":
			g.LevelName = dim
		}
	}
	if g.LatName == "" || g.LonName == "" {
		return nil, fmt.Errorf("ncmagics: could not find latitude and longitude axes in %s", ds.Path())
	}
	var err error
	if g.Lat, err = coordinate(ds, g.LatName); err != nil {
		return nil, err
	}
	if g.Lon, err = coordinate(ds, g.LonName); err != nil {
		return nil, err
	}
	if g.LevelName != "" {
		if g.Levels, err = coordinate(ds, g.LevelName); err != nil {
			return nil, err
		}
		g.levelIndex = make(map[string]int)
		for i, l := range g.Levels {
			g.levelIndex[strconv.Itoa(int(l))] = i
		}
	}
	return g, nil
}

// axisOf returns "X", "Y", "Z" or "" for dimension dim.
func axisOf(ds Dataset, dim string) string {
	if a, ok := ds.Attribute(dim, "axis"); ok {
		if s, ok := a.(string); ok {
			return strings.ToUpper(strings.TrimSpace(s))
		}
	}
	name, _ := ds.Attribute(dim, "standard_name")
	units, _ := ds.Attribute(dim, "units")
	sn, _ := name.(string)
	u, _ := units.(string)
	switch {
	case sn == "latitude" || u == "degrees_north" || u == "degree_north":
		return "Y"
	case sn == "longitude" || u == "degrees_east" || u == "degree_east":
		return "X"
	case sn == "air_pressure" || u == "hPa" || u == "millibar" || u == "Pa":
		return "Z"
	}
	return ""
}

// coordinate reads the coordinate variable of dimension dim.
func coordinate(ds Dataset, dim string) ([]float64, error) {
	v, err := ds.ReadAll(dim)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: reading coordinate %s: %v", dim, err)
	}
	return v.Elements, nil
}

// HasLevels reports whether the file has a vertical axis.
func (g *Grid) HasLevels() bool { return g.LevelName != "" }

// LevelIndex returns the index of the given level. Levels are matched by
// their integer value, so 850 matches a level stored as 850.0.
func (g *Grid) LevelIndex(level int) (int, error) {
	i, ok := g.levelIndex[strconv.Itoa(level)]
	if !ok {
		return -1, fmt.Errorf("%w %d; available levels are %v", ErrUnknownLevel, level, g.SortedLevels())
	}
	return i, nil
}

// SortedLevels returns the integer level values from the surface upward,
// which for pressure levels is in descending order.
func (g *Grid) SortedLevels() []int {
	o := make([]int, len(g.Levels))
	for i, l := range g.Levels {
		o[i] = int(l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(o)))
	return o
}

// sameHorizontal reports whether g2 has the same horizontal grid as g.
func (g *Grid) sameHorizontal(g2 *Grid) bool {
	return len(g.Lat) == len(g2.Lat) && len(g.Lon) == len(g2.Lon)
}
