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
	"image/color"
	"math"
	"os"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Coastlines adds the shapes in the shapefile at path to the map. Shapes
// stored in a projected coordinate system are converted to longitude and
// latitude using the file's .prj file.
func (m *Map) Coastlines(path string) error {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return fmt.Errorf("mapplot: opening coastlines %s: %v", path, err)
	}
	defer d.Close()

	var t proj.Transformer
	sr, err := d.SR()
	switch {
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("mapplot: reading projection of %s: %v", path, err)
	case err == nil && sr.Name != "longlat":
		ll, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
		if err != nil {
			return err
		}
		if t, err = sr.NewTransform(ll); err != nil {
			return fmt.Errorf("mapplot: coastlines %s: %v", path, err)
		}
	}
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if g == nil {
			continue
		}
		if t != nil {
			if g, err = g.Transform(t); err != nil {
				return fmt.Errorf("mapplot: coastlines %s: %v", path, err)
			}
		}
		m.coastlines = append(m.coastlines, g)
	}
	if err := d.Error(); err != nil {
		return fmt.Errorf("mapplot: reading coastlines %s: %v", path, err)
	}
	return nil
}

// paths returns the vertex lists of the linear parts of g.
func paths(g geom.Geom) [][]geom.Point {
	switch t := g.(type) {
	case geom.LineString:
		return [][]geom.Point{t}
	case geom.MultiLineString:
		var out [][]geom.Point
		for _, l := range t {
			out = append(out, l)
		}
		return out
	case geom.Polygon:
		var out [][]geom.Point
		for _, r := range t {
			out = append(out, r)
		}
		return out
	case geom.MultiPolygon:
		var out [][]geom.Point
		for _, p := range t {
			for _, r := range p {
				out = append(out, r)
			}
		}
		return out
	}
	return nil
}

// project returns the canvas paths of a longitude-latitude path, broken
// wherever the path passes out of view.
func (c *mapCanvas) project(path []geom.Point, lonShift float64) [][]vg.Point {
	var out [][]vg.Point
	var cur []vg.Point
	for _, p := range path {
		pt, ok := c.point(p.X+lonShift, p.Y)
		if !ok {
			if len(cur) > 1 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, pt)
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

func (m *Map) drawCoastlines(c *mapCanvas) error {
	if len(m.coastlines) == 0 {
		return nil
	}
	style := draw.LineStyle{Color: color.Black, Width: c.fontSize * 3.5 / 36}
	shifts := []float64{0}
	if xmin, xmax, _, _ := m.proj.Extent(); m.proj.Rectilinear() {
		// Shapefiles use -180..180; draw copies for maps that extend
		// past either end.
		if xmax > 180 {
			shifts = append(shifts, 360)
		}
		if xmin < -180 {
			shifts = append(shifts, -360)
		}
	}
	for _, g := range m.coastlines {
		for _, path := range paths(g) {
			for _, s := range shifts {
				lines := c.ClipLinesXY(c.project(path, s)...)
				if len(lines) > 0 {
					c.StrokeLines(style, lines...)
				}
			}
		}
	}
	return nil
}

func (m *Map) drawGraticule(c *mapCanvas) error {
	if m.proj.Rectilinear() {
		return m.drawGrid(c)
	}
	style := draw.LineStyle{Color: color.NRGBA{A: 178}, Width: c.fontSize / 36}
	var lines []geom.LineString
	for lat := 20.; lat < 90; lat += 20 {
		var l geom.LineString
		for lon := 0.; lon <= 360; lon += 2 {
			x, y, _ := c.proj.Project(lon, lat)
			l = append(l, geom.Point{X: x, Y: y})
		}
		lines = append(lines, l)
	}
	for lon := -180.; lon < 180; lon += 20 {
		var l geom.LineString
		for lat := 0.; lat <= 90; lat += 2 {
			x, y, _ := c.proj.Project(lon, lat)
			l = append(l, geom.Point{X: x, Y: y})
		}
		lines = append(lines, l)
	}
	for _, l := range lines {
		if err := c.carto.DrawVector(l, color.NRGBA{}, style, draw.GlyphStyle{}); err != nil {
			return err
		}
	}
	return nil
}

// gridStep is the spacing of the graticule on rectilinear maps.
const gridStep = 10.

// drawGrid draws dashed grid lines with degree labels on the left and
// bottom edges of a rectilinear map.
func (m *Map) drawGrid(c *mapCanvas) error {
	xmin, xmax, ymin, ymax := m.proj.Extent()
	style := draw.LineStyle{
		Color:  color.NRGBA{A: 178},
		Width:  c.fontSize / 36,
		Dashes: []vg.Length{c.fontSize / 4, c.fontSize / 4},
	}
	ts, err := textStyle(c.fontSize * 0.8)
	if err != nil {
		return err
	}
	for lon := math.Ceil(xmin/gridStep) * gridStep; lon <= xmax; lon += gridStep {
		bottom, _ := c.point(lon, ymin)
		top, _ := c.point(lon, ymax)
		c.StrokeLines(style, []vg.Point{bottom, top})
		ts.XAlign, ts.YAlign = -0.5, -1
		c.FillText(ts, vg.Point{X: bottom.X, Y: bottom.Y - c.fontSize/4}, LonLabel(lon))
	}
	for lat := math.Ceil(ymin/gridStep) * gridStep; lat <= ymax; lat += gridStep {
		left, _ := c.point(xmin, lat)
		right, _ := c.point(xmax, lat)
		c.StrokeLines(style, []vg.Point{left, right})
		ts.XAlign, ts.YAlign = -1, -0.5
		c.FillText(ts, vg.Point{X: left.X - c.fontSize/4, Y: left.Y}, LatLabel(lat))
	}
	return nil
}

// LonLabel formats a longitude such as 150°E or 170°W.
func LonLabel(lon float64) string {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	lon -= 180
	switch {
	case lon == 0 || lon == -180:
		return fmt.Sprintf("%g°", math.Abs(lon))
	case lon > 0:
		return fmt.Sprintf("%g°E", lon)
	}
	return fmt.Sprintf("%g°W", -lon)
}

// LatLabel formats a latitude such as 30°N.
func LatLabel(lat float64) string {
	switch {
	case lat > 0:
		return fmt.Sprintf("%g°N", lat)
	case lat < 0:
		return fmt.Sprintf("%g°S", -lat)
	}
	return "0°"
}
